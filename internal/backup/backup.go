// Copyright (c) 2026 Keymaster Team
// Keyring - local SSH key manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package backup reads and writes key store archives: a tar stream of key
// pairs, compressed with zstd and, unless explicitly allowed otherwise,
// encrypted through the security gate.
//
// On disk an archive is a single header line naming the format version and
// encoding, followed by the payload.
package backup

import (
	"archive/tar"
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/toeirei/keyring/internal/model"
	"github.com/toeirei/keyring/internal/security"
)

const (
	magic        = "KEYRING-BACKUP"
	version      = 1
	encFernet    = "fernet"
	encPlain     = "plain"
	manifestName = "manifest.json"

	// MaxArchiveSize bounds both the archive read from disk and its
	// decompressed payload.
	MaxArchiveSize = 64 << 20
)

// ErrPlaintextRefused is returned by Write when the gate cannot encrypt and
// plaintext output was not allowed.
var ErrPlaintextRefused = errors.New("refusing to write an unencrypted backup of private keys")

// ErrFormat is returned for archives that cannot be decoded.
var ErrFormat = errors.New("not a keyring backup")

// Pair is one key pair inside an archive.
type Pair struct {
	Name    string
	Private security.Secret
	Public  []byte
	ModTime time.Time
}

// manifest lists the archive contents.
type manifest struct {
	Version int       `json:"version"`
	Created time.Time `json:"created"`
	Keys    []string  `json:"keys"`
}

// Write encodes pairs to w. The payload is encrypted with gate when it
// encrypts; otherwise allowPlaintext must be set.
func Write(w io.Writer, pairs []Pair, gate security.Gate, allowPlaintext bool) error {
	encoding := encPlain
	if gate != nil && gate.Encrypts() {
		encoding = encFernet
	} else if !allowPlaintext {
		return fmt.Errorf("%w: %w", model.ErrValidation, ErrPlaintextRefused)
	}

	payload, err := pack(pairs)
	if err != nil {
		return err
	}
	defer zero(payload)
	if encoding == encFernet {
		sealed, err := gate.EncryptAtRest(payload)
		if err != nil {
			return fmt.Errorf("%w: encrypt backup: %w", model.ErrStorage, err)
		}
		payload = sealed
	}

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%s v%d %s\n", magic, version, encoding); err != nil {
		return fmt.Errorf("%w: write backup: %w", model.ErrStorage, err)
	}
	if _, err := bw.Write(payload); err != nil {
		return fmt.Errorf("%w: write backup: %w", model.ErrStorage, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: write backup: %w", model.ErrStorage, err)
	}
	return nil
}

// Read decodes an archive written by Write. Encrypted archives need a gate
// holding the same key.
func Read(r io.Reader, gate security.Gate) ([]Pair, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxArchiveSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read backup: %w", model.ErrStorage, err)
	}
	if len(data) > MaxArchiveSize {
		return nil, fmt.Errorf("%w: %w: archive larger than %d bytes", model.ErrValidation, ErrFormat, MaxArchiveSize)
	}
	nl := bytes.IndexByte(data, '\n')
	if nl < 0 {
		return nil, fmt.Errorf("%w: %w: missing header", model.ErrValidation, ErrFormat)
	}
	fields := strings.Fields(string(data[:nl]))
	if len(fields) != 3 || fields[0] != magic || fields[1] != fmt.Sprintf("v%d", version) {
		return nil, fmt.Errorf("%w: %w: bad header", model.ErrValidation, ErrFormat)
	}
	payload := data[nl+1:]

	switch fields[2] {
	case encPlain:
	case encFernet:
		if gate == nil || !gate.Encrypts() {
			return nil, fmt.Errorf("%w: backup is encrypted but no encryption key is configured", model.ErrValidation)
		}
		plain, err := gate.DecryptAtRest(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: decrypt backup: %w", model.ErrValidation, err)
		}
		defer zero(plain)
		payload = plain
	default:
		return nil, fmt.Errorf("%w: %w: unknown encoding %q", model.ErrValidation, ErrFormat, fields[2])
	}
	return unpack(payload)
}

func pack(pairs []Pair) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("could not create zstd writer: %w", err)
	}
	tw := tar.NewWriter(zw)

	m := manifest{Version: version, Created: time.Now().UTC()}
	for _, p := range pairs {
		m.Keys = append(m.Keys, p.Name)
	}
	mj, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := addFile(tw, manifestName, mj, 0o644, m.Created); err != nil {
		return nil, err
	}
	for _, p := range pairs {
		if err := addFile(tw, p.Name, p.Private, 0o600, p.ModTime); err != nil {
			return nil, err
		}
		if err := addFile(tw, p.Name+model.PublicKeySuffix, p.Public, 0o644, p.ModTime); err != nil {
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("%w: finish tar stream: %w", model.ErrStorage, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: finish zstd stream: %w", model.ErrStorage, err)
	}
	return buf.Bytes(), nil
}

func addFile(tw *tar.Writer, name string, data []byte, mode int64, mod time.Time) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     mode,
		Size:     int64(len(data)),
		ModTime:  mod,
		Typeflag: tar.TypeReg,
		Format:   tar.FormatPAX,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("%w: tar header %s: %w", model.ErrStorage, name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("%w: tar write %s: %w", model.ErrStorage, name, err)
	}
	return nil
}

func unpack(payload []byte) ([]Pair, error) {
	zr, err := zstd.NewReader(bytes.NewReader(payload), zstd.WithDecoderMaxMemory(MaxArchiveSize))
	if err != nil {
		return nil, fmt.Errorf("could not create zstd reader: %w", err)
	}
	defer zr.Close()

	var m *manifest
	files := map[string][]byte{}
	mtimes := map[string]time.Time{}
	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w: %w", model.ErrValidation, ErrFormat, err)
		}
		if hdr.Typeflag != tar.TypeReg || strings.ContainsAny(hdr.Name, `/\`) {
			return nil, fmt.Errorf("%w: %w: unexpected entry %q", model.ErrValidation, ErrFormat, hdr.Name)
		}
		data, err := io.ReadAll(io.LimitReader(tr, MaxArchiveSize))
		if err != nil {
			return nil, fmt.Errorf("%w: %w: %w", model.ErrValidation, ErrFormat, err)
		}
		if hdr.Name == manifestName {
			m = &manifest{}
			if err := json.Unmarshal(data, m); err != nil {
				return nil, fmt.Errorf("%w: %w: manifest: %w", model.ErrValidation, ErrFormat, err)
			}
			continue
		}
		files[hdr.Name] = data
		mtimes[hdr.Name] = hdr.ModTime
	}
	if m == nil {
		return nil, fmt.Errorf("%w: %w: missing manifest", model.ErrValidation, ErrFormat)
	}

	pairs := make([]Pair, 0, len(m.Keys))
	for _, name := range m.Keys {
		priv, okPriv := files[name]
		pub, okPub := files[name+model.PublicKeySuffix]
		if !okPriv || !okPub {
			return nil, fmt.Errorf("%w: %w: incomplete pair %q", model.ErrValidation, ErrFormat, name)
		}
		pairs = append(pairs, Pair{Name: name, Private: security.Secret(priv), Public: pub, ModTime: mtimes[name]})
	}
	return pairs, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
