package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wellnessconnect/internal/models"
	"wellnessconnect/internal/risk"
)

const (
	chatCollection       = "chat_logs"
	assessmentCollection = "assessments"
)

type chatDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      int64              `bson:"user_id"`
	Message     string             `bson:"message"`
	Response    string             `bson:"response"`
	StressLevel string             `bson:"stress_level"`
	Timestamp   time.Time          `bson:"timestamp"`
}

type assessmentDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	UserID          int64              `bson:"user_id"`
	PHQScore        int                `bson:"phq_score"`
	GADScore        int                `bson:"gad_score"`
	TotalScore      int                `bson:"total_score"`
	ChatStressLevel string             `bson:"chat_stress_level"`
	FinalLevel      string             `bson:"final_level"`
	CreatedAt       time.Time          `bson:"created_at"`
}

func (d *assessmentDoc) model() *models.Assessment {
	return &models.Assessment{
		ID:              d.ID.Hex(),
		UserID:          d.UserID,
		PHQScore:        d.PHQScore,
		GADScore:        d.GADScore,
		TotalScore:      d.TotalScore,
		ChatStressLevel: d.ChatStressLevel,
		FinalLevel:      risk.ParseLevel(d.FinalLevel),
		CreatedAt:       d.CreatedAt,
	}
}

// MongoJournal keeps history in the chat_logs and assessments collections.
type MongoJournal struct {
	client      *mongo.Client
	chats       *mongo.Collection
	assessments *mongo.Collection
	sealer      *Sealer
}

// DialMongo connects, pings and ensures the user/time indexes.
func DialMongo(ctx context.Context, uri, database string, sealer *Sealer) (*MongoJournal, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	db := client.Database(database)
	j := &MongoJournal{
		client:      client,
		chats:       db.Collection(chatCollection),
		assessments: db.Collection(assessmentCollection),
		sealer:      sealer,
	}
	byUserTime := mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}}
	if _, err := j.chats.Indexes().CreateOne(connectCtx, byUserTime); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("index chat logs: %w", err)
	}
	byUserCreated := mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}}
	if _, err := j.assessments.Indexes().CreateOne(connectCtx, byUserCreated); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("index assessments: %w", err)
	}
	return j, nil
}

func (j *MongoJournal) RecordChat(ctx context.Context, log *models.ChatLog) error {
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	msg, resp, err := j.sealer.sealPair(log.Message, log.Response)
	if err != nil {
		return fmt.Errorf("seal chat: %w", err)
	}
	res, err := j.chats.InsertOne(ctx, chatDoc{
		UserID:      log.UserID,
		Message:     msg,
		Response:    resp,
		StressLevel: log.StressLevel.String(),
		Timestamp:   log.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("insert chat log: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		log.ID = oid.Hex()
	}
	return nil
}

func (j *MongoJournal) ChatHistory(ctx context.Context, userID int64) ([]*models.ChatLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := j.chats.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find chat logs: %w", err)
	}
	defer cur.Close(ctx)

	var logs []*models.ChatLog
	for cur.Next(ctx) {
		var d chatDoc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode chat log: %w", err)
		}
		msg, resp, err := j.sealer.openPair(d.Message, d.Response)
		if err != nil {
			return nil, fmt.Errorf("open chat log %s: %w", d.ID.Hex(), err)
		}
		logs = append(logs, &models.ChatLog{
			ID:          d.ID.Hex(),
			UserID:      d.UserID,
			Message:     msg,
			Response:    resp,
			StressLevel: risk.ParseLevel(d.StressLevel),
			Timestamp:   d.Timestamp,
		})
	}
	return logs, cur.Err()
}

func (j *MongoJournal) RecordAssessment(ctx context.Context, a *models.Assessment) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	res, err := j.assessments.InsertOne(ctx, assessmentDoc{
		UserID:          a.UserID,
		PHQScore:        a.PHQScore,
		GADScore:        a.GADScore,
		TotalScore:      a.TotalScore,
		ChatStressLevel: a.ChatStressLevel,
		FinalLevel:      a.FinalLevel.String(),
		CreatedAt:       a.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		a.ID = oid.Hex()
	}
	return nil
}

func (j *MongoJournal) LatestAssessment(ctx context.Context, userID int64) (*models.Assessment, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	var d assessmentDoc
	if err := j.assessments.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("latest assessment: %w", err)
	}
	return d.model(), nil
}

func (j *MongoJournal) LatestAssessments(ctx context.Context, userIDs []int64) (map[int64]*models.Assessment, error) {
	out := make(map[int64]*models.Assessment, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := j.assessments.Find(ctx, bson.M{"user_id": bson.M{"$in": userIDs}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find assessments: %w", err)
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var d assessmentDoc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode assessment: %w", err)
		}
		if _, seen := out[d.UserID]; !seen {
			out[d.UserID] = d.model()
		}
	}
	return out, cur.Err()
}

func (j *MongoJournal) DeleteUser(ctx context.Context, userID int64) error {
	if _, err := j.chats.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("delete chat logs: %w", err)
	}
	if _, err := j.assessments.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("delete assessments: %w", err)
	}
	return nil
}

func (j *MongoJournal) Close(ctx context.Context) error {
	return j.client.Disconnect(ctx)
}

// dropAll clears both collections. Tests only.
func (j *MongoJournal) dropAll(ctx context.Context) error {
	if err := j.chats.Drop(ctx); err != nil {
		return err
	}
	return j.assessments.Drop(ctx)
}

var _ Journal = (*MongoJournal)(nil)
