package domain

import "errors"

var (
	ErrStorage           = errors.New("storage error")
	ErrParse             = errors.New("parse error")
	ErrEmptyDataset      = errors.New("empty dataset")
	ErrImageGeneration   = errors.New("image generation error")
	ErrMalformedResponse = errors.New("malformed response")
)

type ErrorKind string

const (
	KindStorage           ErrorKind = "StorageError"
	KindParse             ErrorKind = "ParseError"
	KindEmptyDataset      ErrorKind = "EmptyDatasetError"
	KindImageGeneration   ErrorKind = "ImageGenerationError"
	KindMalformedResponse ErrorKind = "MalformedResponseError"
	KindInternal          ErrorKind = "InternalError"
)

// KindOf maps an error returned by the pipeline to its kind. Errors that do
// not wrap one of the sentinels above are reported as KindInternal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStorage):
		return KindStorage
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrEmptyDataset):
		return KindEmptyDataset
	case errors.Is(err, ErrImageGeneration):
		return KindImageGeneration
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformedResponse
	default:
		return KindInternal
	}
}
