package evm

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lightKeyManager(t *testing.T) *KeyManager {
	km := NewKeyManager(t.TempDir())
	km.ScryptN, km.ScryptP = keystore.LightScryptN, keystore.LightScryptP
	return km
}

func TestKeyManager(t *testing.T) {
	km := lightKeyManager(t)

	t.Run("Encrypt and Decrypt Key", func(t *testing.T) {
		key, err := km.GenerateKey()
		require.NoError(t, err)

		body, err := km.EncryptKey(key, "test-password")
		require.NoError(t, err)
		assert.NotContains(t, string(body), hex.EncodeToString(crypto.FromECDSA(key)))

		decrypted, err := km.DecryptKey(body, "test-password")
		require.NoError(t, err)
		assert.Equal(t, crypto.FromECDSA(key), crypto.FromECDSA(decrypted), "Decrypted private key should match")
	})

	t.Run("Entries use the v3 scrypt format", func(t *testing.T) {
		key, err := km.GenerateKey()
		require.NoError(t, err)
		body, err := km.EncryptKey(key, "pw")
		require.NoError(t, err)

		var entry struct {
			Version int `json:"version"`
			Crypto  struct {
				KDF       string                 `json:"kdf"`
				KDFParams map[string]interface{} `json:"kdfparams"`
			} `json:"crypto"`
		}
		require.NoError(t, json.Unmarshal(body, &entry))
		assert.Equal(t, 3, entry.Version)
		assert.Equal(t, "scrypt", entry.Crypto.KDF)
		assert.NotEmpty(t, entry.Crypto.KDFParams["salt"], "every entry carries its own salt")
	})

	t.Run("Save and Load Keystore Entry", func(t *testing.T) {
		key, err := km.GenerateKey()
		require.NoError(t, err)
		address := crypto.PubkeyToAddress(key.PublicKey).Hex()

		path, err := km.SaveKeyStoreEntry(key, "test-password")
		require.NoError(t, err)
		assert.Equal(t, address+".json", filepath.Base(path))

		loaded, err := km.LoadKeyStoreEntry(address, "test-password")
		require.NoError(t, err)
		assert.Equal(t, crypto.FromECDSA(key), crypto.FromECDSA(loaded))

		fromFile, err := NewKeyManager("").LoadKeyStoreFile(path, "test-password")
		require.NoError(t, err)
		assert.Equal(t, address, crypto.PubkeyToAddress(fromFile.PublicKey).Hex())
	})

	t.Run("Error Cases", func(t *testing.T) {
		key, err := km.GenerateKey()
		require.NoError(t, err)

		body, err := km.EncryptKey(key, "password1")
		require.NoError(t, err)
		_, err = km.DecryptKey(body, "password2")
		assert.ErrorIs(t, err, keystore.ErrDecrypt)

		_, err = km.DecryptKey([]byte("not json"), "password1")
		assert.Error(t, err)

		_, err = km.LoadKeyStoreFile(filepath.Join(t.TempDir(), "nonexistent.json"), "password1")
		assert.Error(t, err)
	})

	t.Run("Address mismatch is rejected", func(t *testing.T) {
		key, err := km.GenerateKey()
		require.NoError(t, err)
		path, err := km.SaveKeyStoreEntry(key, "pw")
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &entry))
		entry["address"] = "000000000000000000000000000000000000dead"
		tampered, err := json.Marshal(entry)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, tampered, 0600))

		_, err = km.LoadKeyStoreFile(path, "pw")
		assert.ErrorContains(t, err, "does not match key")
	})

	t.Run("Multiple Key Generation", func(t *testing.T) {
		keys := make(map[string]bool)
		for i := 0; i < 10; i++ {
			key, err := km.GenerateKey()
			require.NoError(t, err)
			address := crypto.PubkeyToAddress(key.PublicKey).Hex()
			assert.False(t, keys[address], "Generated duplicate address")
			keys[address] = true
		}
	})
}

func TestNewKeyManagerUsesStandardScrypt(t *testing.T) {
	km := NewKeyManager("")
	assert.Equal(t, keystore.StandardScryptN, km.ScryptN)
	assert.Equal(t, keystore.StandardScryptP, km.ScryptP)
}
