package repository

import (
	"context"
	"strings"
	"testing"

	"whispr-go/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// statement 是一条生成但未执行的 SQL。
type statement struct {
	sql  string
	vars []interface{}
}

// newDryRunDB 返回只生成 SQL 不连接数据库的 gorm 实例，以及记录生成语句的切片。
func newDryRunDB(t *testing.T) (*gorm.DB, *[]statement) {
	t.Helper()
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "whispr:whispr@tcp(127.0.0.1:3306)/whispr?parseTime=True",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("gorm.Open() error = %v", err)
	}

	var stmts []statement
	record := func(d *gorm.DB) {
		stmts = append(stmts, statement{
			sql:  d.Statement.SQL.String(),
			vars: append([]interface{}(nil), d.Statement.Vars...),
		})
	}
	if err := db.Callback().Create().After("gorm:create").Register("test:record_create", record); err != nil {
		t.Fatal(err)
	}
	if err := db.Callback().Query().After("gorm:query").Register("test:record_query", record); err != nil {
		t.Fatal(err)
	}
	if err := db.Callback().Update().After("gorm:update").Register("test:record_update", record); err != nil {
		t.Fatal(err)
	}
	return db, &stmts
}

func lastStatement(t *testing.T, stmts *[]statement) statement {
	t.Helper()
	if len(*stmts) == 0 {
		t.Fatal("no SQL generated")
	}
	return (*stmts)[len(*stmts)-1]
}

func TestPostFindByUserAndContent(t *testing.T) {
	db, stmts := newDryRunDB(t)
	repo := NewPostRepository(db)

	_, _ = repo.FindByUserAndContent(context.Background(), "anon_1", "exams again")
	st := lastStatement(t, stmts)
	if !strings.Contains(st.sql, "user_id = ? AND content_digest = ? AND content = ?") {
		t.Errorf("sql = %s", st.sql)
	}
	want := []interface{}{"anon_1", model.ContentDigest("exams again"), "exams again"}
	if len(st.vars) < len(want) {
		t.Fatalf("vars = %v", st.vars)
	}
	for i, v := range want {
		if st.vars[i] != v {
			t.Errorf("vars[%d] = %v, want %v", i, st.vars[i], v)
		}
	}
}

func TestPostListings(t *testing.T) {
	db, stmts := newDryRunDB(t)
	repo := NewPostRepository(db)

	_, _ = repo.ListVisible(context.Background())
	st := lastStatement(t, stmts)
	if !strings.Contains(st.sql, "WHERE hidden = ?") || !strings.HasSuffix(st.sql, "ORDER BY created_at desc") {
		t.Errorf("ListVisible sql = %s", st.sql)
	}
	if len(st.vars) != 1 || st.vars[0] != false {
		t.Errorf("ListVisible vars = %v", st.vars)
	}

	_, _ = repo.ListAll(context.Background())
	st = lastStatement(t, stmts)
	if strings.Contains(st.sql, "WHERE") || !strings.HasSuffix(st.sql, "ORDER BY created_at desc") {
		t.Errorf("ListAll sql = %s", st.sql)
	}
}

func TestPostCreateFillsDigest(t *testing.T) {
	db, stmts := newDryRunDB(t)
	post := &model.Post{ID: "p1", UserID: "anon_1", Content: "hello there", AILabel: model.LabelNormal}

	if err := NewPostRepository(db).Create(context.Background(), post); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if post.ContentDigest != model.ContentDigest("hello there") {
		t.Errorf("ContentDigest = %q", post.ContentDigest)
	}
	if st := lastStatement(t, stmts); !strings.HasPrefix(st.sql, "INSERT INTO `posts`") || strings.Contains(st.sql, "ON DUPLICATE KEY") {
		t.Errorf("sql = %s", st.sql)
	}
}

func TestPostSingleColumnUpdates(t *testing.T) {
	db, stmts := newDryRunDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
		want string
	}{
		{"label", func() error { return repo.UpdateLabel(ctx, "p1", model.LabelStressed) }, "UPDATE `posts` SET `ai_label`=? WHERE id = ?"},
		{"hidden", func() error { return repo.SetHidden(ctx, "p1", true) }, "UPDATE `posts` SET `hidden`=? WHERE id = ?"},
		{"reply", func() error { return repo.SetReply(ctx, "p1", "You're not alone.") }, "UPDATE `posts` SET `reply`=? WHERE id = ?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); err != nil {
				t.Fatalf("error = %v", err)
			}
			if st := lastStatement(t, stmts); !strings.Contains(st.sql, tt.want) {
				t.Errorf("sql = %s, want %s", st.sql, tt.want)
			}
		})
	}
}
