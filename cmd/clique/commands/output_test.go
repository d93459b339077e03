package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PaulBabatuyi/clique-gRPC/internal/client/feed"
)

func TestPrintView_States(t *testing.T) {
	var buf bytes.Buffer
	printView(&buf, feed.View{Status: feed.Loading}, nil)
	require.Equal(t, "Loading messages...\n", buf.String())

	buf.Reset()
	printView(&buf, feed.View{Status: feed.Empty}, nil)
	require.Equal(t, "No messages yet. Start the conversation!\n", buf.String())
}

func TestPrintView_Groups(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.Local)
	f := feed.New("c1")
	f.Loaded([]feed.Message{
		{ID: "1", SenderID: "a", Content: "one", SentAt: at},
		{ID: "2", SenderID: "a", Content: "two", SentAt: at.Add(time.Second)},
		{ID: "3", SenderID: "b", Content: "three", SentAt: at.Add(2 * time.Second)},
	})

	var buf bytes.Buffer
	printView(&buf, f.View(), map[string]string{"a": "Alice"})
	require.Equal(t, "Alice  Mar 1 09:00\n  one\n  two\nb  Mar 1 09:00\n  three\n", buf.String())
}

func TestReport(t *testing.T) {
	st, err := status.New(codes.InvalidArgument, "invalid input").WithDetails(&errdetails.BadRequest{
		FieldViolations: []*errdetails.BadRequest_FieldViolation{{Field: "Password", Description: "must be at least 8 characters"}},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	report(&buf, st.Err())
	require.Equal(t, "Check your input: invalid input\n  password: must be at least 8 characters\n", buf.String())

	buf.Reset()
	report(&buf, status.Error(codes.Unauthenticated, "session has ended"))
	require.Contains(t, buf.String(), "clique signin")
}

func TestPrintMessage_SenderName(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 5, 0, 0, time.Local)
	names := map[string]string{"a": "Alice", "b": ""}

	var buf bytes.Buffer
	printMessage(&buf, feed.Message{SenderID: "a", Content: "hi", SentAt: at}, names)
	printMessage(&buf, feed.Message{SenderID: "b", Content: "yo", SentAt: at}, names)
	require.Equal(t, "[09:05] Alice: hi\n[09:05] b: yo\n", buf.String())
}

func TestSignUpCmd_NameFlag(t *testing.T) {
	t.Cleanup(func() { signUpName = "" })
	cmd := signUpCmd()
	require.NoError(t, cmd.Flags().Set("name", "Jane Doe"))
	require.Equal(t, "Jane Doe", signUpName)
}
