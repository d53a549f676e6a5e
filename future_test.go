package postman_test

import (
	"errors"
	"testing"

	"github.com/postman-push/go-postman-api"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recordingPanicHandler struct {
	recovered []any
}

func (h *recordingPanicHandler) HandlePanic(r any) {
	h.recovered = append(h.recovered, r)
}

func TestFuture(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	val, err := postman.NewFuture(postman.NoopPanicHandler{}, func() (int, error) {
		return 42, nil
	}).Get()
	require.NoError(t, err)
	require.Equal(t, 42, val)

	_, err = postman.NewFuture(postman.NoopPanicHandler{}, func() (int, error) {
		return 0, errors.New("failed")
	}).Get()
	require.EqualError(t, err, "failed")
}

func TestFuture_Panic(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	handler := &recordingPanicHandler{}

	_, err := postman.NewFuture(handler, func() (int, error) {
		panic("boom")
	}).Get()
	require.Error(t, err)
	require.Equal(t, []any{"boom"}, handler.recovered)
}
