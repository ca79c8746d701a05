package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/archive-api/pkg/crypto"
	"github.com/noah-isme/archive-api/pkg/storage"
)

type archiveFileStorage interface {
	Save(filename string, data []byte) (string, error)
	ReadAll(filename string) ([]byte, error)
	Exists(filename string) bool
	Hash(filename string) (string, error)
	Copy(src, dst string) (*storage.StoredFile, error)
	Delete(filename string) error
}

type fileSealer interface {
	Seal(plaintext, additional []byte) ([]byte, error)
	Open(sealed, additional []byte) ([]byte, error)
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// StoredObject describes a file written through the vault. Size and Hash refer to the plaintext.
type StoredObject struct {
	Path      string
	Size      int64
	Hash      string
	Encrypted bool
}

// FileVault stores document files below documents/<id>/ and seals them when asked.
// The document id is bound into the ciphertext as additional data.
type FileVault struct {
	storage archiveFileStorage
	sealer  fileSealer
}

// NewFileVault constructs a vault. A nil sealer disables encryption.
func NewFileVault(store archiveFileStorage, sealer fileSealer) *FileVault {
	return &FileVault{storage: store, sealer: sealer}
}

// CanEncrypt reports whether a sealer is configured.
func (v *FileVault) CanEncrypt() bool {
	return v != nil && v.sealer != nil
}

// Store writes data for the document, sealing it when encrypt is set.
func (v *FileVault) Store(documentID, fileName string, data []byte, encrypt bool) (*StoredObject, error) {
	obj := &StoredObject{Size: int64(len(data)), Hash: HashBytes(data)}
	rel := objectPath(documentID, fileName)
	payload := data
	if encrypt {
		if !v.CanEncrypt() {
			return nil, fmt.Errorf("encryption is not configured")
		}
		sealed, err := v.sealer.Seal(data, []byte(documentID))
		if err != nil {
			return nil, fmt.Errorf("seal file: %w", err)
		}
		payload = sealed
		rel += crypto.EncryptedSuffix
		obj.Encrypted = true
	}
	stored, err := v.storage.Save(rel, payload)
	if err != nil {
		return nil, err
	}
	obj.Path = stored
	return obj, nil
}

// Read returns the plaintext of a stored file.
func (v *FileVault) Read(documentID, rel string, encrypted bool) ([]byte, error) {
	data, err := v.storage.ReadAll(rel)
	if err != nil {
		return nil, err
	}
	if !encrypted {
		return data, nil
	}
	if !v.CanEncrypt() {
		return nil, fmt.Errorf("encryption is not configured")
	}
	plain, err := v.sealer.Open(data, []byte(documentID))
	if err != nil {
		return nil, fmt.Errorf("open sealed file: %w", err)
	}
	return plain, nil
}

// Duplicate copies a stored file to a fresh path, converting between sealed and plain as needed.
func (v *FileVault) Duplicate(documentID, rel, fileName string, srcEncrypted, dstEncrypted bool) (*StoredObject, error) {
	if srcEncrypted == dstEncrypted {
		dst := objectPath(documentID, fileName)
		if dstEncrypted {
			dst += crypto.EncryptedSuffix
		}
		plain, err := v.Read(documentID, rel, srcEncrypted)
		if err != nil {
			return nil, err
		}
		if _, err := v.storage.Copy(rel, dst); err != nil {
			return nil, err
		}
		return &StoredObject{Path: dst, Size: int64(len(plain)), Hash: HashBytes(plain), Encrypted: dstEncrypted}, nil
	}
	plain, err := v.Read(documentID, rel, srcEncrypted)
	if err != nil {
		return nil, err
	}
	return v.Store(documentID, fileName, plain, dstEncrypted)
}

// Hash returns the sha256 of the plaintext behind a stored file.
func (v *FileVault) Hash(documentID, rel string, encrypted bool) (string, error) {
	if !encrypted {
		return v.storage.Hash(rel)
	}
	plain, err := v.Read(documentID, rel, true)
	if err != nil {
		return "", err
	}
	return HashBytes(plain), nil
}

// Exists reports whether the stored file is present.
func (v *FileVault) Exists(rel string) bool {
	return rel != "" && v.storage.Exists(rel)
}

// Delete removes a stored file.
func (v *FileVault) Delete(rel string) error {
	if rel == "" {
		return nil
	}
	return v.storage.Delete(rel)
}

// HashBytes returns the hex sha256 of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func objectPath(documentID, fileName string) string {
	base := filepath.Base(strings.TrimSpace(fileName))
	base = unsafeFileChars.ReplaceAllString(base, "_")
	if base == "" || base == "." || base == "_" {
		base = "file"
	}
	return path.Join("documents", documentID, uuid.NewString()[:8]+"_"+base)
}
