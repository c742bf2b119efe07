package boltsecurestore

import "fmt"

var (
	// ErrStoreLocked specifies that the store must be unlocked to perform the
	// requested operation.
	ErrStoreLocked = fmt.Errorf("store is locked")

	// ErrPasswordRequired specifies that a password is required to create/unlock
	// the store.
	ErrPasswordRequired = fmt.Errorf("password must not be null")
	// ErrInvalidPassword is returned when trying to unlock the store with an
	// incorrect password.
	ErrInvalidPassword = fmt.Errorf("password is not valid")

	// ErrRootKeyBucketNotFound specifies that there is no root bucket which
	// can/should happen only if the store has been corrupted or was initialized
	// incorrectly.
	ErrRootKeyBucketNotFound = fmt.Errorf("root key bucket not found")
	// ErrSecretsBucketNotFound is the same as ErrRootKeyBucketNotFound for the
	// bucket holding the entries.
	ErrSecretsBucketNotFound = fmt.Errorf("secrets bucket not found")
	// ErrEncKeyNotFound specifies that there was no encryption key found
	// even if one was expected to be generated.
	ErrEncKeyNotFound = fmt.Errorf("store encryption key not found")

	// ErrDataNotFound specifies that no data has been found for a given key.
	ErrDataNotFound = fmt.Errorf("data not found")
	// ErrMissingDataKey specifies that a data key is required to perform the
	// requested operation.
	ErrMissingDataKey = fmt.Errorf("missing data key")
	// ErrMissingData specifies that the data value is required to perform a
	// write operation.
	ErrMissingData = fmt.Errorf("missing data to add")
)
