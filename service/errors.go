package service

import (
	"context"
	"errors"
	"fmt"
	neturl "net/url"
	"syscall"

	"google.golang.org/api/googleapi"
)

type errTmpIf interface{ Temporary() bool }
type errTmp struct{ error }

func (t errTmp) Temporary() bool { return true }
func (t *errTmp) Unwrap() error  { return t.error }

// MakeTemporary marks err as transient (the operation may succeed if retried)
func MakeTemporary(err error) error { return &errTmp{err} }

// Temporary inspects the error trace and returns whether the error is transient
func Temporary(err error) bool {
	var uerr *neturl.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}

	// Some syscall errors are not flagged temporary by the runtime
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EIO, syscall.EBUSY, syscall.ECANCELED, syscall.ECONNABORTED, syscall.ECONNRESET, syscall.ENOMEM, syscall.EPIPE:
			return true
		}
	}

	var tmp errTmpIf
	if errors.As(err, &tmp) {
		return tmp.Temporary()
	}
	var gapiError *googleapi.Error
	if errors.As(err, &gapiError) {
		return gapiError.Code == 429 || gapiError.Code == 500
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// MergeErrors appends the messages of newErrs to err, nil errors being ignored.
// The returned error wraps the first permanent error if any (so that it is not reported as temporary),
// the first error otherwise.
func MergeErrors(err error, newErrs ...error) error {
	for _, newErr := range newErrs {
		switch {
		case newErr == nil:
		case err == nil:
			err = newErr
		case Temporary(err) && !Temporary(newErr):
			err = fmt.Errorf("%w\n %v", newErr, err)
		default:
			err = fmt.Errorf("%w\n %v", err, newErr)
		}
	}
	return err
}

// ErrorKind classifies the failures reported to the user
type ErrorKind string

const (
	KindUnknown  ErrorKind = "error"
	KindInput    ErrorKind = "input error"
	KindLookup   ErrorKind = "lookup failure"
	KindTransfer ErrorKind = "transfer failure"
	KindData     ErrorKind = "data error"
)

type kindIf interface{ Kind() ErrorKind }

// Kind returns the kind of the first classified error of the trace
func Kind(err error) ErrorKind {
	var k kindIf
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// ErrInvalidInput is returned on malformed addresses, coordinates or flags
type ErrInvalidInput struct {
	Reason string
}

func (e ErrInvalidInput) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}
func (e ErrInvalidInput) Kind() ErrorKind { return KindInput }

// ErrAddressNotFound is returned when the geocoder has no match (or cannot be reached)
type ErrAddressNotFound struct {
	Address string
	Err     error
}

func (e ErrAddressNotFound) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("address not found: '%s': %v", e.Address, e.Err)
	}
	return fmt.Sprintf("address not found: '%s'", e.Address)
}
func (e ErrAddressNotFound) Kind() ErrorKind { return KindLookup }
func (e ErrAddressNotFound) Unwrap() error   { return e.Err }

// ErrNoMatchingScene is returned when no scene satisfies the search filters
type ErrNoMatchingScene struct {
	Filter string
}

func (e ErrNoMatchingScene) Error() string {
	return fmt.Sprintf("no matching scene (%s)", e.Filter)
}
func (e ErrNoMatchingScene) Kind() ErrorKind { return KindLookup }

// ErrAssetUnavailable is returned when an asset is missing, returns an error status
// or cannot be read partially
type ErrAssetUnavailable struct {
	Asset  string
	Reason string
}

func (e ErrAssetUnavailable) Error() string {
	return fmt.Sprintf("asset unavailable: %s: %s", e.Asset, e.Reason)
}
func (e ErrAssetUnavailable) Kind() ErrorKind { return KindTransfer }

// ErrEmptyCrop is returned when the bounding box does not intersect the raster
type ErrEmptyCrop struct {
	Asset string
}

func (e ErrEmptyCrop) Error() string {
	return fmt.Sprintf("empty crop: bounding box does not intersect %s", e.Asset)
}
func (e ErrEmptyCrop) Kind() ErrorKind { return KindData }

// ErrMissingBandFile is returned when a required band file does not exist
type ErrMissingBandFile struct {
	File string
}

func (e ErrMissingBandFile) Error() string {
	return fmt.Sprintf("missing band file: %s", e.File)
}
func (e ErrMissingBandFile) Kind() ErrorKind { return KindData }

// ErrShapeMismatch is returned when two paired bands do not have the same dimensions
type ErrShapeMismatch struct {
	File1, File2    string
	Width1, Height1 int
	Width2, Height2 int
}

func (e ErrShapeMismatch) Error() string {
	return fmt.Sprintf("shape mismatch: %s is %dx%d, %s is %dx%d", e.File1, e.Width1, e.Height1, e.File2, e.Width2, e.Height2)
}
func (e ErrShapeMismatch) Kind() ErrorKind { return KindData }
