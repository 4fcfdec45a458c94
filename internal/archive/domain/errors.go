package domain

import "errors"

var (
	ErrNotFound             = errors.New("archive_not_found")
	ErrEncryptionKeyInvalid = errors.New("encryption_key_invalid")
	ErrDecrypt              = errors.New("archive_decrypt_failed")
	ErrBlobStore            = errors.New("blob_store_unavailable")
	ErrArchiveFailed        = errors.New("archive_failed")
)
