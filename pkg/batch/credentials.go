// Package batch runs one resolver+scheduler+store pipeline per input file
// and executes batches as isolated parallel units of work.
package batch

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// Credential is one API key, loaded from a key file. It is exclusive to a
// single batch for that batch's entire run.
type Credential struct {
	Key    string
	Source string
}

// LoadCredential reads an API key file. The whole trimmed file content is
// the key.
func LoadCredential(path string) (Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credential{}, fmt.Errorf("read credential %s: %w", path, err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return Credential{}, fmt.Errorf("credential %s is empty", path)
	}
	return Credential{Key: key, Source: path}, nil
}

// Fingerprint returns a short stable identifier for the key, safe for use
// in log fields and rate-gate keys. Key material never leaves the struct.
func (c Credential) Fingerprint() string {
	sum := sha256.Sum256([]byte(c.Key))
	return hex.EncodeToString(sum[:])[:16]
}

// loadedCredential pairs a credential with its load error so an unreadable
// key file fails only the batches assigned to it.
type loadedCredential struct {
	cred Credential
	err  error
}

// loadCredentials loads every key file, keeping per-file errors.
func loadCredentials(paths []string) []loadedCredential {
	loaded := make([]loadedCredential, 0, len(paths))
	for _, path := range paths {
		cred, err := LoadCredential(path)
		loaded = append(loaded, loadedCredential{cred: cred, err: err})
	}
	return loaded
}

// assign returns the credential for batch index i: credentials are paired to
// batches by index, wrapping around when there are fewer credentials than
// batches.
func assign(loaded []loadedCredential, i int) loadedCredential {
	return loaded[i%len(loaded)]
}
