package main

import (
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/GregMSThompson/finance-ledger/infra/cloudrun"
	"github.com/GregMSThompson/finance-ledger/infra/docker"
	"github.com/GregMSThompson/finance-ledger/infra/firestore"
	"github.com/GregMSThompson/finance-ledger/infra/identity"
	"github.com/GregMSThompson/finance-ledger/infra/kms"
	"github.com/GregMSThompson/finance-ledger/infra/provider"
	"github.com/GregMSThompson/finance-ledger/infra/vertex"
)

func main() {
	pulumi.Run(func(ctx *pulumi.Context) error {
		// set default provider with the correct project
		prov, err := provider.SetupDefaultProvider(ctx)
		if err != nil {
			return err
		}

		// enable identity service to allow using firebase
		ident, err := identity.SetupIdentity(ctx)
		if err != nil {
			return err
		}

		// firestore holds the chat archive
		err = firestore.SetupFirestore(ctx, prov)
		if err != nil {
			return err
		}

		err = vertex.SetupVertex(ctx, prov)
		if err != nil {
			return err
		}

		// key for encrypting archived chat messages
		if _, err = kms.SetupKMS(ctx, prov); err != nil {
			return err
		}
		chatKey, err := kms.CreateKey(ctx, prov, "ledger", "chat-archive")
		if err != nil {
			return err
		}

		// create docker repo
		repo, err := docker.CreateCloudrunRepo(ctx)
		if err != nil {
			return err
		}

		_, err = cloudrun.SetupCloudRun(ctx, prov, chatKey, ident, repo)
		if err != nil {
			return err
		}

		ctx.Export("chatKmsKey", chatKey)
		return nil
	})
}
