package blogservice

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/blurblog/blur/internal/common"
)

func setupTestEnvironment(t *testing.T) (*BlogService, *sql.DB) {
	db := common.TestDB("file://../../migrations", t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	return NewBlogService(db, nil, nil, logger), db
}

// createTestUser inserts a user row directly. The password bytes are
// irrelevant to these tests.
func createTestUser(t *testing.T, db *sql.DB, username string) int {
	t.Helper()

	var id int
	err := db.QueryRow("INSERT INTO users (username, email, password) VALUES ($1, $2, $3) RETURNING id", username, username+"@example.com", []byte("x")).Scan(&id)
	if err != nil {
		t.Fatalf("could not create test user: %v", err)
	}

	return id
}

func createTestBlog(t *testing.T, db *sql.DB, ownerId int, slug string, private bool) int {
	t.Helper()

	var id int
	err := db.QueryRow("INSERT INTO blogs (owner_id, title, slug, is_private) VALUES ($1, $2, $3, $4) RETURNING id", ownerId, "Test Blog", slug, private).Scan(&id)
	if err != nil {
		t.Fatalf("could not create test blog: %v", err)
	}

	return id
}

func createTestPost(t *testing.T, db *sql.DB, blogId, authorId int, slug string) int {
	t.Helper()

	var id int
	err := db.QueryRow("INSERT INTO posts (blog_id, author_id, title, slug, content) VALUES ($1, $2, $3, $4, $5) RETURNING id", blogId, authorId, "Test Post", slug, "This is a test post.").Scan(&id)
	if err != nil {
		t.Fatalf("could not create test post: %v", err)
	}

	return id
}

func createTestComment(t *testing.T, db *sql.DB, postId, authorId int) int {
	t.Helper()

	var id int
	err := db.QueryRow("INSERT INTO comments (post_id, author_id, content) VALUES ($1, $2, $3) RETURNING id", postId, authorId, "A comment.").Scan(&id)
	if err != nil {
		t.Fatalf("could not create test comment: %v", err)
	}

	return id
}

func countRows(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()

	var count int
	err := db.QueryRow(query, args...).Scan(&count)
	if err != nil {
		t.Fatalf("could not count rows: %v", err)
	}

	return count
}

var userSeq int

func nextUsername() string {
	userSeq++
	return fmt.Sprintf("user%d", userSeq)
}
