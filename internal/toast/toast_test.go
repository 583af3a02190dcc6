package toast

import (
	"fmt"
	"testing"
)

func TestQueue_PushAndDismiss(t *testing.T) {
	var q Queue
	q.Success("saved")
	q.Error("boom")

	msgs := q.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len(Messages()) = %d, want 2", len(msgs))
	}
	if msgs[0].Level != LevelSuccess || msgs[1].Level != LevelError {
		t.Fatalf("levels = %v,%v want success,error", msgs[0].Level, msgs[1].Level)
	}
	if msgs[0].ID == "" || msgs[0].ID == msgs[1].ID {
		t.Fatalf("ids should be unique and non-empty: %q %q", msgs[0].ID, msgs[1].ID)
	}

	q.Dismiss(msgs[0].ID)
	q.Dismiss("unknown")
	latest, ok := q.Latest()
	if !ok || latest.Text != "boom" || len(q.Messages()) != 1 {
		t.Fatalf("after dismiss: latest=%#v ok=%v len=%d", latest, ok, len(q.Messages()))
	}
}

func TestQueue_LimitDropsOldest(t *testing.T) {
	q := Queue{Limit: 3}
	for i := 0; i < 5; i++ {
		q.Info(fmt.Sprintf("m%d", i))
	}
	msgs := q.Messages()
	if len(msgs) != 3 || msgs[0].Text != "m2" || msgs[2].Text != "m4" {
		t.Fatalf("messages = %#v, want m2..m4", msgs)
	}
}
