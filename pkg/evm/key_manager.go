package evm

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// KeyManager handles the finalize signer key: generation, encryption and the keystore
// directory. Entries are Web3 Secret Storage (v3) files, scrypt + AES-128-CTR, so any
// Ethereum wallet can import them.
type KeyManager struct {
	dir string
	// ScryptN and ScryptP are the KDF cost used when writing. Reading takes them from the file.
	ScryptN int
	ScryptP int
}

func NewKeyManager(dir string) *KeyManager {
	return &KeyManager{dir: dir, ScryptN: keystore.StandardScryptN, ScryptP: keystore.StandardScryptP}
}

// GenerateKey returns a fresh secp256k1 key.
func (km *KeyManager) GenerateKey() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// EncryptKey seals key as v3 keystore JSON.
func (km *KeyManager) EncryptKey(key *ecdsa.PrivateKey, password string) ([]byte, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	return keystore.EncryptKey(&keystore.Key{
		Id:         id,
		Address:    crypto.PubkeyToAddress(key.PublicKey),
		PrivateKey: key,
	}, password, km.ScryptN, km.ScryptP)
}

// DecryptKey opens v3 keystore JSON and checks the key matches the recorded address.
func (km *KeyManager) DecryptKey(body []byte, password string) (*ecdsa.PrivateKey, error) {
	var header struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(body, &header); err != nil {
		return nil, fmt.Errorf("parse keystore: %w", err)
	}
	key, err := keystore.DecryptKey(body, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore: %w", err)
	}
	if header.Address != "" && key.Address != common.HexToAddress(header.Address) {
		return nil, fmt.Errorf("keystore address %s does not match key %s", header.Address, key.Address.Hex())
	}
	return key.PrivateKey, nil
}

// SaveKeyStoreEntry encrypts key and writes <address>.json into the keystore directory.
func (km *KeyManager) SaveKeyStoreEntry(key *ecdsa.PrivateKey, password string) (string, error) {
	body, err := km.EncryptKey(key, password)
	if err != nil {
		return "", fmt.Errorf("encrypt key: %w", err)
	}
	if err := os.MkdirAll(km.dir, 0700); err != nil {
		return "", fmt.Errorf("create keystore dir: %w", err)
	}
	path := filepath.Join(km.dir, crypto.PubkeyToAddress(key.PublicKey).Hex()+".json")
	if err := os.WriteFile(path, body, 0600); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func (km *KeyManager) LoadKeyStoreEntry(address string, password string) (*ecdsa.PrivateKey, error) {
	return km.LoadKeyStoreFile(filepath.Join(km.dir, common.HexToAddress(address).Hex()+".json"), password)
}

// LoadKeyStoreFile decrypts the entry at path. Files written by geth or other wallets load too.
func (km *KeyManager) LoadKeyStoreFile(path string, password string) (*ecdsa.PrivateKey, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	return km.DecryptKey(body, password)
}
