package domain

import "errors"

var (
	// ErrAssetNotFound is returned when a referenced uploaded asset does not exist
	ErrAssetNotFound = errors.New("asset not found")

	// ErrUnsupportedMediaType is returned when an uploaded file has an unrecognized extension or content type
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrClassificationFailed is returned when the deepfake classifier cannot produce scores
	ErrClassificationFailed = errors.New("classification failed")

	// ErrChainSubmission is returned when a transaction cannot be submitted or is reverted
	ErrChainSubmission = errors.New("chain submission failed")

	// ErrConfirmationTimeout is returned when a submitted transaction is not confirmed in time
	ErrConfirmationTimeout = errors.New("confirmation timeout")

	// ErrContractNotDeployed is returned when no collectible contract address is configured
	ErrContractNotDeployed = errors.New("contract not deployed")

	// ErrTokenNotFound is returned when a token id does not exist on the contract
	ErrTokenNotFound = errors.New("token not found")

	// ErrCertificateNotFound is returned when a certificate id has no record
	ErrCertificateNotFound = errors.New("certificate not found")
)
