// Package filestore persists session records in a single JSON document on
// disk, optionally sealed with a passphrase.
package filestore

import (
	"crypto/rand"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"

	"github.com/travelbook/admin-console/sessions"
)

var _ sessions.Backend = (*Store)(nil)

const (
	filePerm = 0o600
	dirPerm  = 0o700

	saltLength  = 16
	nonceLength = 24

	// scrypt parameters recommended for interactive logins.
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// ErrDecrypt means the session file could not be opened with the configured passphrase.
var ErrDecrypt = errors.New("session file could not be decrypted")

type document map[string]json.RawMessage

// sealedFile is the on-disk shape when a passphrase is set. Box is nonce||secretbox.
type sealedFile struct {
	Salt []byte `json:"salt"`
	Box  []byte `json:"box"`
}

// Store is a sessions.Backend over one file.
type Store struct {
	path       string
	passphrase string

	mu   sync.Mutex
	salt []byte
	key  *[32]byte
}

// Option configures a Store.
type Option func(*Store)

// WithPassphrase encrypts the file at rest with a key derived from passphrase.
func WithPassphrase(passphrase string) Option {
	return func(s *Store) {
		s.passphrase = passphrase
	}
}

func New(path string, options ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("[filestore.New] path is required")
	}
	s := &Store{path: path}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *Store) Read(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	value, ok := doc[key]
	if !ok {
		return nil, sessions.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *Store) Write(key string, value []byte) error {
	if !json.Valid(value) {
		return errors.Errorf("[filestore.Write] value for %q is not json", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	doc[key] = append(json.RawMessage(nil), value...)
	return s.save(doc)
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := doc[key]; !ok {
		return nil
	}
	delete(doc, key)
	return s.save(doc)
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() (document, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return document{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[filestore.load] read")
	}

	plain := raw
	if s.passphrase != "" {
		if plain, err = s.open(raw); err != nil {
			return nil, err
		}
	}

	doc := document{}
	if err := json.Unmarshal(plain, &doc); err != nil {
		return nil, errors.Wrap(err, "[filestore.load] decode")
	}
	if doc == nil {
		doc = document{}
	}
	return doc, nil
}

func (s *Store) save(doc document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "[filestore.save] encode")
	}
	if s.passphrase != "" {
		if data, err = s.seal(data); err != nil {
			return err
		}
	}
	return writeAtomic(s.path, data)
}

func (s *Store) open(raw []byte) ([]byte, error) {
	var sealed sealedFile
	if err := json.Unmarshal(raw, &sealed); err != nil {
		return nil, errors.Wrap(ErrDecrypt, err.Error())
	}
	if len(sealed.Box) < nonceLength+secretbox.Overhead {
		return nil, ErrDecrypt
	}

	key, err := s.keyFor(sealed.Salt)
	if err != nil {
		return nil, err
	}
	var nonce [nonceLength]byte
	copy(nonce[:], sealed.Box[:nonceLength])
	plain, ok := secretbox.Open(nil, sealed.Box[nonceLength:], &nonce, key)
	if !ok {
		return nil, ErrDecrypt
	}
	return plain, nil
}

func (s *Store) seal(plain []byte) ([]byte, error) {
	salt := s.salt
	if salt == nil {
		salt = make([]byte, saltLength)
		if _, err := rand.Read(salt); err != nil {
			return nil, errors.Wrap(err, "[filestore.seal] salt")
		}
	}
	key, err := s.keyFor(salt)
	if err != nil {
		return nil, err
	}

	var nonce [nonceLength]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, errors.Wrap(err, "[filestore.seal] nonce")
	}
	box := secretbox.Seal(nonce[:], plain, &nonce, key)
	return json.Marshal(sealedFile{Salt: salt, Box: box})
}

// keyFor derives (and caches) the secretbox key for salt.
func (s *Store) keyFor(salt []byte) (*[32]byte, error) {
	if s.key != nil && string(s.salt) == string(salt) {
		return s.key, nil
	}
	derived, err := scrypt.Key([]byte(s.passphrase), salt, scryptN, scryptR, scryptP, 32)
	if err != nil {
		return nil, errors.Wrap(err, "[filestore.keyFor] scrypt")
	}
	var key [32]byte
	copy(key[:], derived)
	s.salt = append([]byte(nil), salt...)
	s.key = &key
	return s.key, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return errors.Wrap(err, "[filestore.writeAtomic] mkdir")
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return errors.Wrap(err, "[filestore.writeAtomic] create temp")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[filestore.writeAtomic] write")
	}
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[filestore.writeAtomic] chmod")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[filestore.writeAtomic] close")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "[filestore.writeAtomic] rename")
}
