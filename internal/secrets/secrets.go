// Package secrets resolves configuration values stored in Google Secret
// Manager. A value of the form sm://<name> or sm://<name>/<version> is
// replaced by the secret payload; anything else is returned unchanged.
package secrets

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GregMSThompson/finance-ledger/internal/errs"
)

const Prefix = "sm://"

type accessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

type Resolver struct {
	client    accessor
	projectID string
}

func NewResolver(client *secretmanager.Client, projectID string) *Resolver {
	return &Resolver{client: client, projectID: projectID}
}

func IsReference(value string) bool {
	return strings.HasPrefix(value, Prefix)
}

// Resolve returns the secret payload for a reference, or value itself.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	if !IsReference(value) {
		return value, nil
	}

	name := r.versionName(strings.TrimPrefix(value, Prefix))
	res, err := r.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", errs.NewNotFoundError(fmt.Sprintf("secret %s not found", name))
		}
		transient := status.Code(err) == codes.Unavailable || status.Code(err) == codes.DeadlineExceeded
		return "", errs.NewExternalServiceError("secretmanager", "failed to access secret "+name, transient, err)
	}
	return strings.TrimSpace(string(res.GetPayload().GetData())), nil
}

// ResolveAll resolves every pointer in place, stopping at the first failure.
func (r *Resolver) ResolveAll(ctx context.Context, values ...*string) error {
	for _, v := range values {
		if v == nil || !IsReference(*v) {
			continue
		}
		resolved, err := r.Resolve(ctx, *v)
		if err != nil {
			return err
		}
		*v = resolved
	}
	return nil
}

// projects/{project}/secrets/{name}/versions/{version}
func (r *Resolver) versionName(ref string) string {
	if strings.HasPrefix(ref, "projects/") {
		if strings.Contains(ref, "/versions/") {
			return ref
		}
		return ref + "/versions/latest"
	}

	name, version, ok := strings.Cut(ref, "/")
	if !ok || version == "" {
		version = "latest"
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", r.projectID, name, version)
}
