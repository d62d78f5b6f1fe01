package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 123, time.UTC), ID: uuid.New()}
	out, err := ParseCursor(EncodeCursor(in))
	if err != nil {
		t.Fatalf("ParseCursor: %v", err)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) || out.ID != in.ID {
		t.Fatalf("expected %+v got %+v", in, out)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if c, err := ParseCursor(""); err != nil || c != nil {
		t.Fatalf("empty cursor should be nil, got %v %v", c, err)
	}
	if _, err := ParseCursor("!!!"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestPageTrimsBufferRow(t *testing.T) {
	now := time.Now().UTC()
	rows := []Cursor{
		{CreatedAt: now, ID: uuid.New()},
		{CreatedAt: now.Add(-time.Minute), ID: uuid.New()},
		{CreatedAt: now.Add(-2 * time.Minute), ID: uuid.New()},
	}
	identity := func(c Cursor) Cursor { return c }

	page, next := Page(rows, 2, identity)
	if len(page) != 2 {
		t.Fatalf("expected 2 rows got %d", len(page))
	}
	if next != EncodeCursor(rows[1]) {
		t.Fatalf("expected cursor of last kept row")
	}

	page, next = Page(rows[:2], 2, identity)
	if len(page) != 2 || next != "" {
		t.Fatalf("expected final page without cursor, got %d %q", len(page), next)
	}
}

func TestNormalizeLimit(t *testing.T) {
	if NormalizeLimit(0) != DefaultLimit {
		t.Fatal("expected default")
	}
	if NormalizeLimit(MaxLimit+50) != MaxLimit {
		t.Fatal("expected cap")
	}
	if LimitWithBuffer(10) != 11 {
		t.Fatal("expected buffer of one")
	}
}
