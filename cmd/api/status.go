package main

import (
	"errors"
	"sort"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PaulBabatuyi/clique-gRPC/internal/auth"
)

var errPermissionDenied = status.Error(codes.PermissionDenied, "Permission denied")

// invalidInput converts a validation failure into InvalidArgument. Field
// errors travel as a BadRequest detail so clients can show them inline.
func invalidInput(err error) error {
	var fields auth.FieldErrors
	if !errors.As(err, &fields) {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	br := &errdetails.BadRequest{}
	for _, name := range names {
		br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       name,
			Description: fields[name],
		})
	}

	st := status.New(codes.InvalidArgument, "invalid input")
	if detailed, derr := st.WithDetails(br); derr == nil {
		return detailed.Err()
	}
	return st.Err()
}

// internalError logs err and returns an opaque Internal status.
func (s *Server) internalError(err error, msg string) error {
	s.log.Error().Err(err).Msg(msg)
	return status.Error(codes.Internal, msg)
}
