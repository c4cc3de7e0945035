package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/ticketbase/ticketd/chain"
	clienterrors "github.com/ticketbase/ticketd/errors"
)

const defaultGasLimit = 300_000

// Client implements chain.Gateway against EVM RPC endpoints with
// round-robin failover across the configured URLs.
type Client struct {
	clients      []*ethclient.Client
	index        uint64
	chainID      *big.Int
	abis         map[string]abi.ABI
	key          *ecdsa.PrivateKey
	from         ethcommon.Address
	pollInterval time.Duration
	retry        *chain.RetryManager
	logger       zerolog.Logger
}

// Options configures a Client.
type Options struct {
	RPCURLs             []string
	ChainID             int64
	PrivateKeyHex       string        // optional; reads work without a key
	ReceiptPollInterval time.Duration // default 2s
	Retry               *chain.RetryConfig
}

// NewClient dials the configured RPC endpoints and verifies their chain id
// where possible. Endpoints that fail to dial are skipped; at least one
// working endpoint is required.
func NewClient(opts Options, logger zerolog.Logger) (*Client, error) {
	if len(opts.RPCURLs) == 0 {
		return nil, fmt.Errorf("no RPC URLs provided")
	}

	log := logger.With().Str("component", "evm_gateway").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clients := make([]*ethclient.Client, 0, len(opts.RPCURLs))
	for _, url := range opts.RPCURLs {
		c, err := ethclient.DialContext(ctx, url)
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("failed to connect to RPC endpoint, skipping")
			continue
		}

		id, err := c.ChainID(ctx)
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("chain id verification failed, proceeding with client anyway")
		} else if id.Int64() != opts.ChainID {
			c.Close()
			log.Warn().
				Str("url", url).
				Int64("expected_chain_id", opts.ChainID).
				Int64("actual_chain_id", id.Int64()).
				Msg("chain id mismatch, closing client")
			continue
		}

		clients = append(clients, c)
		log.Info().Str("url", url).Msg("connected to RPC endpoint")
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("failed to connect to any valid RPC endpoints")
	}

	abis, err := parseABIs()
	if err != nil {
		return nil, err
	}

	client := &Client{
		clients:      clients,
		chainID:      big.NewInt(opts.ChainID),
		abis:         abis,
		pollInterval: opts.ReceiptPollInterval,
		retry:        chain.NewRetryManager(opts.Retry, log),
		logger:       log,
	}
	if client.pollInterval <= 0 {
		client.pollInterval = 2 * time.Second
	}

	if opts.PrivateKeyHex != "" {
		key, err := crypto.HexToECDSA(opts.PrivateKeyHex)
		if err != nil {
			return nil, fmt.Errorf("failed to parse signing key: %w", err)
		}
		client.key = key
		client.from = crypto.PubkeyToAddress(key.PublicKey)
	}

	return client, nil
}

// From returns the signing address, or the zero address when no key is
// configured.
func (c *Client) From() string {
	return c.from.Hex()
}

// Close releases all RPC connections.
func (c *Client) Close() {
	for _, cl := range c.clients {
		cl.Close()
	}
}

// executeWithFailover runs fn against each endpoint in round-robin order
// until one succeeds.
func (c *Client) executeWithFailover(operation string, fn func(*ethclient.Client) error) error {
	start := atomic.AddUint64(&c.index, 1)
	var lastErr error
	for i := 0; i < len(c.clients); i++ {
		cl := c.clients[(start+uint64(i))%uint64(len(c.clients))]
		if err := fn(cl); err != nil {
			lastErr = err
			c.logger.Debug().Err(err).Str("operation", operation).Msg("endpoint failed, trying next")
			continue
		}
		return nil
	}
	return lastErr
}

// Read implements chain.Gateway. Transient RPC failures are retried with
// backoff; contract reverts are not.
func (c *Client) Read(ctx context.Context, contract chain.ContractRef, method string, args ...any) ([]any, error) {
	parsed, ok := c.abis[contract.Name]
	if !ok {
		return nil, clienterrors.Newf(clienterrors.CodeGateway, "unknown contract %q", contract.Name)
	}

	m, ok := parsed.Methods[method]
	if !ok {
		return nil, clienterrors.Newf(clienterrors.CodeGateway, "contract %s has no method %q", contract.Name, method)
	}

	packedArgs, err := coerceArgs(m.Inputs, args)
	if err != nil {
		return nil, clienterrors.WrapAs(err, clienterrors.CodeGateway, "bad call arguments")
	}
	data, err := parsed.Pack(method, packedArgs...)
	if err != nil {
		return nil, clienterrors.WrapAs(err, clienterrors.CodeGateway, "failed to pack call")
	}

	to := ethcommon.HexToAddress(contract.Address)
	msg := ethereum.CallMsg{To: &to, Data: data}

	var raw []byte
	err = c.retry.Execute(ctx, contract.Name+"."+method, func() error {
		return c.executeWithFailover("call", func(cl *ethclient.Client) error {
			var innerErr error
			raw, innerErr = cl.CallContract(ctx, msg, nil)
			return innerErr
		})
	})
	if err != nil {
		return nil, clienterrors.NewGatewayError("read "+contract.Name+"."+method, err)
	}

	values, err := parsed.Unpack(method, raw)
	if err != nil {
		return nil, clienterrors.WrapAs(err, clienterrors.CodeGateway, "failed to unpack output")
	}

	out := make([]any, len(values))
	for i, v := range values {
		out[i] = normalize(v)
	}
	return out, nil
}

// Write implements chain.Gateway: pack, sign, submit. Submission is never
// retried automatically; a rejected or failed submission surfaces to the
// caller, who decides whether to start over.
func (c *Client) Write(ctx context.Context, contract chain.ContractRef, method string, args []any, value *big.Int) (chain.TxHandle, error) {
	if c.key == nil {
		return "", clienterrors.New(clienterrors.CodeGateway, "no signing key configured")
	}

	parsed, ok := c.abis[contract.Name]
	if !ok {
		return "", clienterrors.Newf(clienterrors.CodeGateway, "unknown contract %q", contract.Name)
	}
	m, ok := parsed.Methods[method]
	if !ok {
		return "", clienterrors.Newf(clienterrors.CodeGateway, "contract %s has no method %q", contract.Name, method)
	}

	packedArgs, err := coerceArgs(m.Inputs, args)
	if err != nil {
		return "", clienterrors.WrapAs(err, clienterrors.CodeGateway, "bad call arguments")
	}
	data, err := parsed.Pack(method, packedArgs...)
	if err != nil {
		return "", clienterrors.WrapAs(err, clienterrors.CodeGateway, "failed to pack call")
	}

	to := ethcommon.HexToAddress(contract.Address)
	if value == nil {
		value = big.NewInt(0)
	}

	var txHash string
	err = c.executeWithFailover("send", func(cl *ethclient.Client) error {
		nonce, err := cl.PendingNonceAt(ctx, c.from)
		if err != nil {
			return fmt.Errorf("failed to fetch nonce: %w", err)
		}
		gasPrice, err := cl.SuggestGasPrice(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch gas price: %w", err)
		}

		gasLimit, err := cl.EstimateGas(ctx, ethereum.CallMsg{
			From:  c.from,
			To:    &to,
			Value: value,
			Data:  data,
		})
		if err != nil {
			// Estimation failures on some endpoints are not fatal for
			// simple calls; fall back to a fixed ceiling.
			c.logger.Warn().Err(err).Str("method", method).Msg("gas estimation failed, using default limit")
			gasLimit = defaultGasLimit
		}

		tx := types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gasLimit,
			To:       &to,
			Value:    value,
			Data:     data,
		})
		signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
		if err != nil {
			return fmt.Errorf("failed to sign transaction: %w", err)
		}
		if err := cl.SendTransaction(ctx, signed); err != nil {
			return err
		}
		txHash = signed.Hash().Hex()
		return nil
	})
	if err != nil {
		return "", clienterrors.NewGatewayError("write "+contract.Name+"."+method, err)
	}

	c.logger.Info().
		Str("contract", contract.Name).
		Str("method", method).
		Str("tx_hash", txHash).
		Msg("transaction submitted")
	return chain.TxHandle(txHash), nil
}

// AwaitReceipt implements chain.Gateway. It polls until the transaction is
// mined or ctx is canceled; no timeout is enforced here, so a transaction
// that never confirms stalls the caller until cancellation.
func (c *Client) AwaitReceipt(ctx context.Context, handle chain.TxHandle) (*chain.Receipt, error) {
	hash := ethcommon.HexToHash(string(handle))

	for {
		var receipt *types.Receipt
		err := c.executeWithFailover("receipt", func(cl *ethclient.Client) error {
			var innerErr error
			receipt, innerErr = cl.TransactionReceipt(ctx, hash)
			return innerErr
		})

		switch {
		case err == nil && receipt != nil:
			out := &chain.Receipt{
				TxHash:  receipt.TxHash.Hex(),
				Success: receipt.Status == types.ReceiptStatusSuccessful,
			}
			if receipt.BlockNumber != nil {
				out.BlockNumber = receipt.BlockNumber.Uint64()
			}
			return out, nil
		case err != nil && err != ethereum.NotFound:
			// Transient RPC failure while polling; log and keep waiting.
			c.logger.Warn().Err(err).Str("tx_hash", string(handle)).Msg("receipt poll failed, will retry")
		}

		select {
		case <-ctx.Done():
			return nil, clienterrors.NewGatewayError("await receipt", ctx.Err())
		case <-time.After(c.pollInterval):
		}
	}
}

// coerceArgs converts caller-friendly argument types (uint64 ids, hex
// string addresses) to the types the ABI packer expects.
func coerceArgs(inputs abi.Arguments, args []any) ([]any, error) {
	if len(args) != len(inputs) {
		return nil, fmt.Errorf("got %d arguments, want %d", len(args), len(inputs))
	}

	out := make([]any, len(args))
	for i, arg := range args {
		switch inputs[i].Type.T {
		case abi.UintTy, abi.IntTy:
			switch v := arg.(type) {
			case *big.Int:
				out[i] = v
			case uint64:
				out[i] = new(big.Int).SetUint64(v)
			case int64:
				out[i] = big.NewInt(v)
			case int:
				out[i] = big.NewInt(int64(v))
			case string:
				n, ok := new(big.Int).SetString(v, 10)
				if !ok {
					return nil, fmt.Errorf("argument %d: %q is not a decimal integer", i, v)
				}
				out[i] = n
			default:
				return nil, fmt.Errorf("argument %d: unsupported integer type %T", i, arg)
			}
		case abi.AddressTy:
			switch v := arg.(type) {
			case ethcommon.Address:
				out[i] = v
			case string:
				if !ethcommon.IsHexAddress(v) {
					return nil, fmt.Errorf("argument %d: %q is not a hex address", i, v)
				}
				out[i] = ethcommon.HexToAddress(v)
			default:
				return nil, fmt.Errorf("argument %d: unsupported address type %T", i, arg)
			}
		default:
			out[i] = arg
		}
	}
	return out, nil
}
