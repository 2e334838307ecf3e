package util

import (
	"context"
	"net/http"
	"strings"

	"github.com/filecoin-project/go-jsonrpc"
	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
	"golang.org/x/xerrors"

	"github.com/rqzrqh/paychan/contract"
)

// ParseAPIInfo splits "<token>:<maddr>". A bare multiaddr has no token.
func ParseAPIInfo(tokenAddr string) (token string, maddr string, err error) {
	if strings.HasPrefix(tokenAddr, "/") {
		return "", tokenAddr, nil
	}

	tos := strings.Split(tokenAddr, ":")
	if len(tos) != 2 {
		return "", "", xerrors.Errorf("invalid api tokens, expected <token>:<maddr>, got: %s", tokenAddr)
	}
	return tos[0], tos[1], nil
}

// GetChannelAPI connects to the node described by "<token>:<maddr>".
func GetChannelAPI(ctx context.Context, tokenAddr string) (*contract.Client, jsonrpc.ClientCloser, error) {
	token, listenAddr, err := ParseAPIInfo(tokenAddr)
	if err != nil {
		return nil, nil, err
	}
	if token == "" {
		return GetChannelAPIWithoutCredentials(ctx, listenAddr)
	}
	return GetChannelAPIUsingCredentials(ctx, listenAddr, token)
}

func GetChannelAPIUsingCredentials(ctx context.Context, listenAddr, token string) (*contract.Client, jsonrpc.ClientCloser, error) {
	addr, err := dialAddr(listenAddr)
	if err != nil {
		return nil, nil, err
	}

	return contract.NewClient(ctx, apiURI(addr), tokenHeaders(token))
}

func GetChannelAPIWithoutCredentials(ctx context.Context, listenAddr string) (*contract.Client, jsonrpc.ClientCloser, error) {
	addr, err := dialAddr(listenAddr)
	if err != nil {
		return nil, nil, err
	}

	return contract.NewClient(ctx, apiURI(addr), emptyHeaders())
}

func dialAddr(listenAddr string) (string, error) {
	parsedAddr, err := ma.NewMultiaddr(listenAddr)
	if err != nil {
		return "", err
	}

	_, addr, err := manet.DialArgs(parsedAddr)
	if err != nil {
		return "", err
	}
	return addr, nil
}

func apiURI(addr string) string {
	return "ws://" + addr + "/rpc/v1"
}

func tokenHeaders(token string) http.Header {
	headers := http.Header{}
	headers.Add("Authorization", "Bearer "+token)
	return headers
}

func emptyHeaders() http.Header {
	headers := http.Header{}
	return headers
}
