package tokenstore

import (
	"bytes"
	"testing"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	secret := []byte("machine-secret")
	plaintext := []byte(`{"tokens":{"access_token":"at-123"}}`)

	blob, err := encrypt(secret, plaintext)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	got, err := decrypt(secret, blob)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("round trip mismatch: got %q, want %q", got, plaintext)
	}
}

func TestEncrypt_BlobLayout(t *testing.T) {
	plaintext := []byte("payload")

	blob, err := encrypt([]byte("secret"), plaintext)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	want := saltSize + nonceSize + tagSize + len(plaintext)
	if len(blob) != want {
		t.Errorf("blob length = %d, want %d (salt+iv+tag+ciphertext)", len(blob), want)
	}
}

func TestEncrypt_FreshSaltAndNoncePerWrite(t *testing.T) {
	secret := []byte("secret")
	plaintext := []byte("payload")

	first, err := encrypt(secret, plaintext)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	second, err := encrypt(secret, plaintext)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	if bytes.Equal(first[:saltSize], second[:saltSize]) {
		t.Error("salt reused across writes")
	}
	if bytes.Equal(first[saltSize:saltSize+nonceSize], second[saltSize:saltSize+nonceSize]) {
		t.Error("nonce reused across writes")
	}
	if bytes.Equal(first, second) {
		t.Error("identical blobs for two writes of the same plaintext")
	}
}

func TestDecrypt_WrongSecret(t *testing.T) {
	blob, err := encrypt([]byte("right-secret"), []byte("payload"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	if _, err := decrypt([]byte("wrong-secret"), blob); err == nil {
		t.Error("decrypt succeeded with the wrong secret")
	}
}

func TestDecrypt_TamperedBlob(t *testing.T) {
	secret := []byte("secret")
	blob, err := encrypt(secret, []byte("payload"))
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	// Flip one bit in each region; GCM authentication must catch all of
	// them.
	offsets := map[string]int{
		"salt":       0,
		"nonce":      saltSize,
		"tag":        saltSize + nonceSize,
		"ciphertext": saltSize + nonceSize + tagSize,
	}
	for region, offset := range offsets {
		t.Run(region, func(t *testing.T) {
			tampered := append([]byte(nil), blob...)
			tampered[offset] ^= 0x01

			if _, err := decrypt(secret, tampered); err == nil {
				t.Errorf("decrypt accepted a blob with a tampered %s", region)
			}
		})
	}
}

func TestDecrypt_TruncatedBlob(t *testing.T) {
	short := make([]byte, saltSize+nonceSize+tagSize-1)

	if _, err := decrypt([]byte("secret"), short); err != errMalformedBlob {
		t.Errorf("decrypt error = %v, want errMalformedBlob", err)
	}
}

func TestMachineSecret_Deterministic(t *testing.T) {
	first, err := machineSecret()
	if err != nil {
		t.Fatalf("machineSecret failed: %v", err)
	}
	second, err := machineSecret()
	if err != nil {
		t.Fatalf("machineSecret failed: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("machineSecret is not deterministic on the same host")
	}
	if !bytes.Contains(first, []byte(keyContext)) {
		t.Error("machineSecret does not mix in the application key context")
	}
}

func TestDeriveKey_Length(t *testing.T) {
	key, err := deriveKey([]byte("secret"), bytes.Repeat([]byte{0x42}, saltSize))
	if err != nil {
		t.Fatalf("deriveKey failed: %v", err)
	}
	if len(key) != keySize {
		t.Errorf("key length = %d, want %d", len(key), keySize)
	}
}
