package logx

import (
	"bytes"
	"errors"
	"log"
	"testing"
)

func TestInfo(t *testing.T) {
	var buf bytes.Buffer
	l := log.New(&buf, "", 0)

	Info(l, "req-1", "file.download", "served", "id", "abc123", "bytes", 100, "name", "my file.pdf")

	want := `lvl=info req_id=req-1 op=file.download msg="served" id=abc123 bytes=100 name="my file.pdf"` + "\n"
	if buf.String() != want {
		t.Errorf("got  %q\nwant %q", buf.String(), want)
	}
}

func TestError(t *testing.T) {
	var buf bytes.Buffer
	l := log.New(&buf, "", 0)

	Error(l, "req-2", "file.stats", "stats failed", errors.New("conn refused"), "odd")

	want := `lvl=error req_id=req-2 op=file.stats msg="stats failed" err="conn refused" odd=(missing)` + "\n"
	if buf.String() != want {
		t.Errorf("got  %q\nwant %q", buf.String(), want)
	}
}
