package toolcache

import (
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// VerifySignature checks a detached OpenPGP signature over the file at path.
// Both the signature and the keyring may be armored or binary.
func VerifySignature(path, signaturePath, keyringPath string) error {
	keyring, err := loadKeyring(keyringPath)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return wrap(ErrIO, "open "+path, err)
	}
	defer file.Close()

	sig, err := os.Open(signaturePath)
	if err != nil {
		return wrap(ErrIO, "open signature", err)
	}
	defer sig.Close()

	_, err = openpgp.CheckArmoredDetachedSignature(keyring, file, sig, nil)
	if err != nil {
		if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
			return wrap(ErrIO, "rewind "+path, seekErr)
		}
		if _, seekErr := sig.Seek(0, io.SeekStart); seekErr != nil {
			return wrap(ErrIO, "rewind signature", seekErr)
		}
		_, err = openpgp.CheckDetachedSignature(keyring, file, sig, nil)
	}
	if err != nil {
		return &IntegrityError{Path: path, Reason: fmt.Sprintf("signature: %v", err)}
	}
	return nil
}

func loadKeyring(path string) (openpgp.EntityList, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, wrap(ErrIO, "open keyring", err)
	}
	defer file.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(file)
	if err != nil {
		if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
			return nil, wrap(ErrIO, "rewind keyring", seekErr)
		}
		keyring, err = openpgp.ReadKeyRing(file)
		if err != nil {
			return nil, &IntegrityError{Path: path, Reason: fmt.Sprintf("read keyring: %v", err)}
		}
	}
	if len(keyring) == 0 {
		return nil, &IntegrityError{Path: path, Reason: "keyring is empty"}
	}
	return keyring, nil
}
