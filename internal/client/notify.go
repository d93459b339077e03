package client

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NoticeKind classifies a failure for presentation.
type NoticeKind string

const (
	// NoticeBackend is a dismissable notification.
	NoticeBackend    NoticeKind = "backend"
	NoticeValidation NoticeKind = "validation"
	// NoticeNotFound sends the user back to the default view.
	NoticeNotFound NoticeKind = "not_found"
	NoticeAuth     NoticeKind = "auth"
)

// Notice is a user-facing description of an error.
type Notice struct {
	Kind        NoticeKind
	Title       string
	Description string
	// Fields maps input names to messages for inline feedback.
	Fields map[string]string
	// Redirect is set for NoticeNotFound and NoticeAuth.
	Redirect string
}

// FromError maps an RPC error onto the notice taxonomy. It returns nil for a
// nil error. Nothing is retried.
func FromError(err error) *Notice {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Notice{Kind: NoticeBackend, Title: "Request timed out", Description: err.Error()}
	}

	st, ok := status.FromError(err)
	if !ok {
		return &Notice{Kind: NoticeBackend, Title: "Something went wrong", Description: err.Error()}
	}

	switch st.Code() {
	case codes.InvalidArgument, codes.AlreadyExists:
		n := &Notice{Kind: NoticeValidation, Title: "Check your input", Description: st.Message()}
		for _, d := range st.Details() {
			br, ok := d.(*errdetails.BadRequest)
			if !ok {
				continue
			}
			for _, v := range br.GetFieldViolations() {
				if n.Fields == nil {
					n.Fields = make(map[string]string)
				}
				n.Fields[v.GetField()] = v.GetDescription()
			}
		}
		return n
	case codes.NotFound:
		return &Notice{Kind: NoticeNotFound, Title: "Not found", Description: st.Message(), Redirect: HomePath}
	case codes.Unauthenticated:
		return &Notice{Kind: NoticeAuth, Title: "Please sign in", Description: st.Message(), Redirect: LoginPath}
	case codes.PermissionDenied:
		return &Notice{Kind: NoticeBackend, Title: "Permission denied", Description: st.Message()}
	case codes.ResourceExhausted:
		return &Notice{Kind: NoticeBackend, Title: "Too many attempts", Description: st.Message()}
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return &Notice{Kind: NoticeBackend, Title: "Connection problem", Description: st.Message()}
	default:
		return &Notice{Kind: NoticeBackend, Title: "Something went wrong", Description: st.Message()}
	}
}
