package postman

import "fmt"

// PanicHandler is told about panics recovered in background goroutines.
type PanicHandler interface {
	HandlePanic(any)
}

type NoopPanicHandler struct{}

func (NoopPanicHandler) HandlePanic(any) {}

type Future[T any] struct {
	resCh        chan res[T]
	panicHandler PanicHandler
}

type res[T any] struct {
	val T
	err error
}

func NewFuture[T any](panicHandler PanicHandler, fn func() (T, error)) *Future[T] {
	job := &Future[T]{
		resCh:        make(chan res[T], 1),
		panicHandler: panicHandler,
	}

	go func() {
		defer job.handlePanic()

		val, err := fn()

		job.resCh <- res[T]{val: val, err: err}
	}()

	return job
}

func (job *Future[T]) handlePanic() {
	if r := recover(); r != nil {
		if job.panicHandler != nil {
			job.panicHandler.HandlePanic(r)
		}

		job.resCh <- res[T]{err: fmt.Errorf("recovered from panic: %v", r)}
	}
}

func (job *Future[T]) Get() (T, error) {
	res := <-job.resCh

	return res.val, res.err
}
