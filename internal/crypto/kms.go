// Package crypto seals sensitive values with a Cloud KMS key before they are
// written to Firestore.
package crypto

import (
	"context"
	"encoding/base64"

	gcpkms "cloud.google.com/go/kms/apiv1"
	"cloud.google.com/go/kms/apiv1/kmspb"
	"github.com/googleapis/gax-go/v2"

	"github.com/GregMSThompson/finance-ledger/internal/errs"
)

const serviceName = "kms"

type keyManager interface {
	Encrypt(ctx context.Context, req *kmspb.EncryptRequest, opts ...gax.CallOption) (*kmspb.EncryptResponse, error)
	Decrypt(ctx context.Context, req *kmspb.DecryptRequest, opts ...gax.CallOption) (*kmspb.DecryptResponse, error)
}

type KMS struct {
	client  keyManager
	keyName string
}

func NewKMS(client *gcpkms.KeyManagementClient, keyName string) *KMS {
	return &KMS{client: client, keyName: keyName}
}

// Encrypt seals plaintext with the configured key and returns base64 text.
// Empty input stays empty.
func (k *KMS) Encrypt(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	resp, err := k.client.Encrypt(ctx, &kmspb.EncryptRequest{
		Name:      k.keyName,
		Plaintext: []byte(plaintext),
	})
	if err != nil {
		return "", errs.NewExternalServiceError(serviceName, "failed to encrypt value", false, err)
	}
	return base64.StdEncoding.EncodeToString(resp.Ciphertext), nil
}

// Decrypt reverses Encrypt.
func (k *KMS) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errs.NewExternalServiceError(serviceName, "stored value is not valid base64", false, err)
	}
	resp, err := k.client.Decrypt(ctx, &kmspb.DecryptRequest{
		Name:       k.keyName,
		Ciphertext: raw,
	})
	if err != nil {
		return "", errs.NewExternalServiceError(serviceName, "failed to decrypt value", false, err)
	}
	return string(resp.Plaintext), nil
}
