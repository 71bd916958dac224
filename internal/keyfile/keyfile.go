// Copyright (c) 2026 Keychest Team
// Keychest - SSH private key credential store
// This source code is licensed under the MIT license found in the LICENSE file.

// package keyfile validates raw private-key buffers before they are allowed
// anywhere near the credential store. Validation is structural only: a buffer
// passes when it is framed as a recognized private-key container. Encrypted
// keys pass without a passphrase; nothing here ever decrypts key material or
// performs I/O.
package keyfile

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// ErrInvalidFormat is returned when a buffer does not parse as any
// recognized private-key container. Callers should test with errors.Is; the
// wrapped message carries the human-readable reason.
var ErrInvalidFormat = errors.New("invalid key format")

// ppkMagic is the first-line prefix of PuTTY private key files (v2 and v3).
const ppkMagic = "PuTTY-User-Key-File-"

// Info describes a validated key buffer. All fields are best-effort
// metadata for display purposes; none of them gate acceptance beyond the
// structural checks in Validate.
type Info struct {
	// Format is the container format, e.g. "openssh", "pem", "ppk".
	Format string
	// Algorithm is the key algorithm when it can be determined without a
	// passphrase (e.g. "rsa", "ecdsa", "ed25519"). Empty for encrypted keys.
	Algorithm string
	// Comment is the embedded key comment, for containers that carry one in
	// plaintext (currently only PPK headers).
	Comment string
	// Encrypted reports whether the container is passphrase-protected.
	Encrypted bool
}

// Validate checks that data is structurally parseable as a private-key
// container. It accepts PEM-framed keys (PKCS#1, SEC1, PKCS#8 and the
// OpenSSH format) as well as PuTTY PPK files. Passphrase-protected keys
// validate successfully; decryptability is not this package's concern.
func Validate(data []byte) error {
	_, err := Inspect(data)
	return err
}

// Inspect validates data and returns container metadata. It is Validate
// plus best-effort algorithm detection for unencrypted keys.
func Inspect(data []byte) (Info, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Info{}, fmt.Errorf("%w: empty buffer", ErrInvalidFormat)
	}

	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(ppkMagic)) {
		return inspectPPK(data)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return Info{}, fmt.Errorf("%w: no PEM block found", ErrInvalidFormat)
	}

	info := Info{Format: formatForBlockType(block.Type)}

	key, err := ssh.ParseRawPrivateKey(data)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			// Structurally sound, just encrypted. Good enough.
			info.Encrypted = true
			return info, nil
		}
		return Info{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	info.Algorithm = algorithmName(key)
	return info, nil
}

// formatForBlockType maps a PEM block type to a short container label.
func formatForBlockType(blockType string) string {
	if blockType == "OPENSSH PRIVATE KEY" {
		return "openssh"
	}
	return "pem"
}

// algorithmName derives a display name from a parsed private key.
func algorithmName(key interface{}) string {
	switch key.(type) {
	case *rsa.PrivateKey:
		return "rsa"
	case *ecdsa.PrivateKey:
		return "ecdsa"
	case *ed25519.PrivateKey, ed25519.PrivateKey:
		return "ed25519"
	default:
		return ""
	}
}

// inspectPPK performs a structural check of the PuTTY PPK container. Only
// the header framing is verified; the base64 payload is opaque to us, the
// same way the OpenSSH payload of an encrypted key is.
func inspectPPK(data []byte) (Info, error) {
	text := strings.TrimSpace(strings.ReplaceAll(string(data), "\r\n", "\n"))
	lines := strings.Split(text, "\n")
	first := strings.TrimSpace(lines[0])

	version := strings.TrimPrefix(first, ppkMagic)
	// "2: ssh-ed25519" / "3: ssh-rsa"
	verAlg := strings.SplitN(version, ":", 2)
	if len(verAlg) != 2 || (verAlg[0] != "2" && verAlg[0] != "3") {
		return Info{}, fmt.Errorf("%w: unsupported PPK version header %q", ErrInvalidFormat, first)
	}

	headers := map[string]string{}
	for _, line := range lines[1:] {
		if k, v, ok := strings.Cut(line, ": "); ok {
			headers[k] = strings.TrimSpace(v)
		}
	}
	for _, required := range []string{"Encryption", "Comment", "Public-Lines", "Private-Lines"} {
		if _, ok := headers[required]; !ok {
			return Info{}, fmt.Errorf("%w: PPK file missing %s header", ErrInvalidFormat, required)
		}
	}

	info := Info{
		Format:    "ppk",
		Algorithm: strings.TrimPrefix(strings.TrimSpace(verAlg[1]), "ssh-"),
		Comment:   headers["Comment"],
		Encrypted: headers["Encryption"] != "none",
	}
	return info, nil
}
