package api

import "encoding/json"

// Verifier is a record that can check its own embedded signature.
type Verifier interface {
	Verify() error
}

// UnmarshalSigned parses JSON into dst and verifies its embedded
// signature. The record is only accepted as a whole; on any error dst
// must be discarded.
func UnmarshalSigned(data []byte, dst Verifier) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return err
	}
	return dst.Verify()
}
