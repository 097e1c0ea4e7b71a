package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/RXminuS/impression-hash/internal/config"
	"github.com/RXminuS/impression-hash/internal/grpcclient"
	"github.com/RXminuS/impression-hash/internal/hasher"
	"github.com/RXminuS/impression-hash/pkg/impression"
)

// backend hashes images either in process or through a remote server.
type backend interface {
	Hash(ctx context.Context, data []byte, v impression.Variant) (string, error)
	Similarity(ctx context.Context, first, second string) (float64, error)
	Close() error
}

type localBackend struct {
	svc *hasher.Service
}

func (l localBackend) Hash(ctx context.Context, data []byte, v impression.Variant) (string, error) {
	return l.svc.HashText(ctx, data, v)
}

func (l localBackend) Similarity(ctx context.Context, first, second string) (float64, error) {
	return l.svc.Similarity(ctx, first, second)
}

func (localBackend) Close() error { return nil }

type remoteBackend struct {
	client *grpcclient.Client
}

func (r remoteBackend) Hash(ctx context.Context, data []byte, v impression.Variant) (string, error) {
	if v == impression.Larger {
		return r.client.Larger(ctx, data)
	}
	return r.client.Hash(ctx, data)
}

func (r remoteBackend) Similarity(ctx context.Context, first, second string) (float64, error) {
	return r.client.Similarity(ctx, first, second)
}

func (r remoteBackend) Close() error { return r.client.Close() }

// newBackend honours the --remote and --addr flags.
func newBackend(cmd *cobra.Command, cfg *config.Config) (backend, error) {
	remote, err := cmd.Flags().GetBool("remote")
	if err != nil {
		return nil, err
	}
	if !remote {
		return localBackend{svc: hasher.New(cfg)}, nil
	}

	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return nil, err
	}
	client, err := grpcclient.New(addr, grpcclient.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return remoteBackend{client: client}, nil
}
