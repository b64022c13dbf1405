package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc/metadata"

	"imageAnnotation/internal/config"
	"imageAnnotation/repository"
)

// GenerateJWTHS256 returns a signed JWT string with the claims used by the app,
// expiring ttl from now. A negative ttl yields an already expired token.
func GenerateJWTHS256(t *testing.T, secret, username, role string, isAdmin bool, ttl time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"username": username,
		"role":     role,
		"is_admin": isAdmin,
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

// CtxWithBearer returns a context containing gRPC metadata Authorization header with the given token.
func CtxWithBearer(ctx context.Context, token string) context.Context {
	md := metadata.Pairs("authorization", "Bearer "+token)
	return metadata.NewIncomingContext(ctx, md)
}

// Indexes bundles the repositories built from a users file for tests.
type Indexes struct {
	ImagesDir string
	Users     *repository.UserRepository
	Batches   *repository.BatchRepository
	Labels    *repository.LabelRepository
	Images    *repository.ImageRepository
}

// BuildIndexes builds every repository from uf below a fresh temp images dir.
// Passwords are hashed with bcrypt's minimum cost to keep tests fast.
func BuildIndexes(t *testing.T, uf *config.UsersFile) *Indexes {
	t.Helper()
	dir := t.TempDir()
	users, err := repository.NewUserRepositoryWithCost(uf, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("build user index: %v", err)
	}
	batches, err := repository.NewBatchRepository(uf, users, dir)
	if err != nil {
		t.Fatalf("build batch index: %v", err)
	}
	if err := batches.EnsureFolders(); err != nil {
		t.Fatalf("ensure folders: %v", err)
	}
	return &Indexes{
		ImagesDir: dir,
		Users:     users,
		Batches:   batches,
		Labels:    repository.NewLabelRepository(batches),
		Images:    repository.NewImageRepository(),
	}
}

// WriteImage creates a small placeholder file in the folder of batchID.
func (ix *Indexes) WriteImage(t *testing.T, batchID, name string) string {
	t.Helper()
	b, err := ix.Batches.Get(context.Background(), batchID)
	if err != nil || b == nil {
		t.Fatalf("unknown batch %s: %v", batchID, err)
	}
	path := filepath.Join(b.FolderPath, name)
	if err := os.WriteFile(path, []byte("\x89PNG-"+name), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}

// SampleUsers mirrors the default deployment: two annotators on their own
// batches, a shared batch with two users and one admin.
func SampleUsers() *config.UsersFile {
	return &config.UsersFile{Users: []config.UserEntry{
		{Username: "user1", Password: "user1", BatchID: "batch1", BatchFolder: "batch1"},
		{Username: "user2", Password: "user2", BatchID: "batch2", BatchFolder: "batch2"},
		{Username: "user3", Password: "user3", BatchID: "shared", BatchFolder: "shared"},
		{Username: "user4", Password: "user4", BatchID: "shared", BatchFolder: "shared", Role: "reviewer"},
		{Username: "admin", Password: "admin", IsAdmin: true},
	}}
}
