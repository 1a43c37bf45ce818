package auth

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"wellnessconnect/internal/config"
	"wellnessconnect/internal/models"
	"wellnessconnect/internal/redis"
	"wellnessconnect/internal/storage"
)

func TestAuthIssueValidateRevoke(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	insertUser(t, db, 1, models.RoleStudent)

	svc := NewService(db, nil, time.Hour)
	token, err := svc.IssueToken(context.Background(), 1)
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token")
	}
	userID, err := svc.ValidateToken(context.Background(), token)
	if err != nil || userID != 1 {
		t.Fatalf("ValidateToken failed: id=%d err=%v", userID, err)
	}
	if err := svc.RevokeToken(context.Background(), token); err != nil {
		t.Fatalf("RevokeToken error: %v", err)
	}
	if _, err := svc.ValidateToken(context.Background(), token); err == nil {
		t.Fatalf("expected error after revoke")
	}

	token2, err := svc.IssueToken(context.Background(), 1)
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}
	if err := svc.RevokeUserTokens(context.Background(), 1); err != nil {
		t.Fatalf("RevokeUserTokens error: %v", err)
	}
	if _, err := svc.ValidateToken(context.Background(), token2); err == nil {
		t.Fatalf("expected error after revoke all")
	}
}

func TestAuthValidateExpiredToken(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	insertUser(t, db, 2, models.RoleStudent)

	svc := NewService(db, nil, 10*time.Millisecond)
	token, err := svc.IssueToken(context.Background(), 2)
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := svc.ValidateToken(context.Background(), token); err != ErrTokenExpired {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM user_tokens WHERE token = ?`, token).Scan(&count); err != nil {
		t.Fatalf("query tokens: %v", err)
	}
	if count != 0 {
		t.Fatalf("expired token not purged")
	}
}

func TestAuthPurgeExpired(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	insertUser(t, db, 3, models.RoleStudent)

	short := NewService(db, nil, 10*time.Millisecond)
	long := NewService(db, nil, time.Hour)
	if _, err := short.IssueToken(context.Background(), 3); err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	keep, err := long.IssueToken(context.Background(), 3)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	n, err := long.PurgeExpired(context.Background())
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged token, got %d", n)
	}
	if _, err := long.ValidateToken(context.Background(), keep); err != nil {
		t.Fatalf("live token was purged: %v", err)
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := openTestDB(t)
	defer db.Close()
	insertUser(t, db, 5, models.RoleStudent)
	insertUser(t, db, 6, models.RoleCounsellor)

	svc := NewService(db, nil, time.Hour)
	router := gin.New()
	router.GET("/counsellor", svc.Middleware(), RequireRole(lookupFunc(func(ctx context.Context, id int64) (*models.User, error) {
		var u models.User
		err := db.QueryRowContext(ctx, `SELECT id, role FROM users WHERE id = ?`, id).Scan(&u.ID, &u.Role)
		if err != nil {
			return nil, err
		}
		return &u, nil
	}), models.RoleCounsellor), func(c *gin.Context) {
		user, ok := UserFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, strconv.FormatInt(user.ID, 10))
	})

	studentToken, _ := svc.IssueToken(context.Background(), 5)
	counsellorToken, _ := svc.IssueToken(context.Background(), 6)

	cases := []struct {
		name   string
		token  string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"wrong role", studentToken, http.StatusForbidden},
		{"allowed", counsellorToken, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/counsellor", nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d (%s)", tc.name, tc.status, rec.Code, rec.Body.String())
		}
		if tc.status == http.StatusOK && rec.Body.String() != "6" {
			t.Fatalf("%s: unexpected body %q", tc.name, rec.Body.String())
		}
	}

	if _, err := db.Exec(`DELETE FROM users WHERE id = 6`); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/counsellor", nil)
	req.Header.Set("Authorization", "Bearer "+counsellorToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("deleted account: expected 401, got %d", rec.Code)
	}
}

func TestCSRFMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(nil, nil, time.Hour)
	router := gin.New()
	router.Use(svc.CSRFMiddleware())
	router.POST("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	send := func(method string, mutate func(*http.Request)) int {
		req := httptest.NewRequest(method, "/x", nil)
		if mutate != nil {
			mutate(req)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send(http.MethodGet, nil); code != http.StatusNoContent {
		t.Fatalf("GET should pass, got %d", code)
	}
	if code := send(http.MethodPost, nil); code != http.StatusForbidden {
		t.Fatalf("POST without csrf should fail, got %d", code)
	}
	if code := send(http.MethodPost, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: svc.CSRFCookieName(), Value: "abc"})
		r.Header.Set(svc.CSRFHeaderName(), "abc")
	}); code != http.StatusNoContent {
		t.Fatalf("matching csrf should pass, got %d", code)
	}
	if code := send(http.MethodPost, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: svc.CSRFCookieName(), Value: "abc"})
		r.Header.Set(svc.CSRFHeaderName(), "xyz")
	}); code != http.StatusForbidden {
		t.Fatalf("mismatched csrf should fail, got %d", code)
	}
	if code := send(http.MethodPost, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer whatever")
	}); code != http.StatusNoContent {
		t.Fatalf("bearer request should be exempt, got %d", code)
	}
}

type lookupFunc func(ctx context.Context, id int64) (*models.User, error)

func (f lookupFunc) Get(ctx context.Context, id int64) (*models.User, error) { return f(ctx, id) }

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {
				DSN: ":memory:",
			},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return db
}

func insertUser(t *testing.T, db *sql.DB, id int64, role models.Role) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO users (id, email, name, role, password_hash, created_at) VALUES (?, ?, ?, ?, '', ?)`,
		id, "user"+strconv.FormatInt(id, 10)+"@example.com", "user", role, time.Now().UTC())
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
}

func TestAuthTokenCacheUsesRedis(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	insertUser(t, db, 10, models.RoleStudent)

	cacheClient, cleanup := newRedisCacheClient(t)
	defer cleanup()

	svc := NewService(db, cacheClient, time.Hour)
	ctx := context.Background()

	token, err := svc.IssueToken(ctx, 10)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	key := redisTokenPrefix + token
	got, err := cacheClient.Get(ctx, key)
	if err != nil {
		t.Fatalf("get redis token: %v", err)
	}
	if got != "10" {
		t.Fatalf("expected user 10 in redis, got %s", got)
	}

	_, _ = db.Exec(`DELETE FROM user_tokens WHERE token = ?`, token)
	userID, err := svc.ValidateToken(ctx, token)
	if err != nil || userID != 10 {
		t.Fatalf("ValidateToken via redis failed: id=%d err=%v", userID, err)
	}

	if err := svc.RevokeToken(ctx, token); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	if _, err := cacheClient.Get(ctx, key); err != redis.ErrCacheMiss {
		t.Fatalf("expected redis key deleted, got %v", err)
	}
	if _, err := svc.ValidateToken(ctx, token); err == nil {
		t.Fatalf("expected error after revoke and redis delete")
	}
}

func newRedisCacheClient(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis-backed auth tests")
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("atoi port: %v", err)
	}
	db := 0
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			db = parsed
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := redis.NewClient(ctx, config.RedisConfig{Enabled: true, Host: host, Port: port, DB: db})
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	if err := client.FlushNamespace(ctx); err != nil {
		t.Fatalf("flush namespace: %v", err)
	}
	return client, func() { client.Close() }
}
