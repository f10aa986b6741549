// Package keys builds HTTP clients that trust a pinned CA certificate, and
// fingerprints those certificates so operators can tell which one is in use.
package keys

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tyler-smith/go-bip39"
)

// ErrNoCertificates is returned when a CA file holds no PEM certificates.
var ErrNoCertificates = errors.New("no certificates found")

// PinnedCA is a CA bundle loaded from disk.
type PinnedCA struct {
	Path        string
	Pool        *x509.CertPool
	Fingerprint string
}

// LoadPinnedCA reads a PEM bundle from path. The fingerprint covers the first
// certificate in the file.
func LoadPinnedCA(path string) (*PinnedCA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CA certificate %s: %w", path, err)
	}
	return ParsePinnedCA(path, data)
}

// ParsePinnedCA parses a PEM bundle already in memory.
func ParsePinnedCA(path string, data []byte) (*PinnedCA, error) {
	pool := x509.NewCertPool()
	var first []byte
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse CA certificate %s: %w", path, err)
		}
		pool.AddCert(cert)
		if first == nil {
			first = cert.Raw
		}
	}
	if first == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrNoCertificates)
	}
	return &PinnedCA{Path: path, Pool: pool, Fingerprint: Fingerprint(first)}, nil
}

// Words is the six-word phrase for the pinned certificate.
func (ca *PinnedCA) Words() string {
	return FingerprintWords(ca.Fingerprint)
}

// NewHTTPClient returns a client whose transport trusts only ca. A nil ca keeps
// the system roots.
func NewHTTPClient(ca *PinnedCA, timeout time.Duration) *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if ca != nil {
		tr.TLSClientConfig = &tls.Config{
			RootCAs:    ca.Pool,
			MinVersion: tls.VersionTLS12,
		}
	}
	return &http.Client{Transport: tr, Timeout: timeout}
}

// ClientForPath loads the CA at path, if any, and builds a client around it.
func ClientForPath(path string, timeout time.Duration) (*http.Client, *PinnedCA, error) {
	if path == "" {
		return NewHTTPClient(nil, timeout), nil, nil
	}
	ca, err := LoadPinnedCA(path)
	if err != nil {
		return nil, nil, err
	}
	return NewHTTPClient(ca, timeout), ca, nil
}

// Fingerprint returns the SHA-256 of der as colon separated groups of four hex chars.
func Fingerprint(der []byte) string {
	h := sha256.Sum256(der)
	hexStr := hex.EncodeToString(h[:])
	groups := make([]string, 0, len(hexStr)/4)
	for i := 0; i < len(hexStr); i += 4 {
		groups = append(groups, hexStr[i:min(i+4, len(hexStr))])
	}
	return strings.Join(groups, ":")
}

// FingerprintWords maps a fingerprint onto six words of the BIP-39 wordlist.
func FingerprintWords(fingerprint string) string {
	h := sha256.Sum256([]byte(fingerprint))
	wordlist := bip39.GetWordList()
	words := make([]string, 6)
	for i := range words {
		// 11 bits per word
		bitpos := i * 11
		idx := 0
		for j := 0; j < 11; j++ {
			bytepos := (bitpos + j) / 8
			bitoff := 7 - ((bitpos + j) % 8)
			if (h[bytepos] & (1 << bitoff)) != 0 {
				idx |= 1 << (10 - j)
			}
		}
		words[i] = wordlist[idx]
	}
	return strings.Join(words, "-")
}
