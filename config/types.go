package config

type Config struct {
	// Log Config
	LogLevel   int    `json:"log_level"`   // e.g., 0 = debug, 1 = info, etc.
	LogFormat  string `json:"log_format"`  // "json" or "console"
	LogSampler bool   `json:"log_sampler"` // if true, samples logs (e.g., 1 in 5)

	// Chain configuration
	ChainID             int64    `json:"chain_id"`              // EVM chain id (default: 84532, Base Sepolia)
	RPCURLs             []string `json:"rpc_urls"`              // RPC endpoints, tried round-robin
	PrivateKeyHex       string   `json:"private_key_hex"`       // Signing key; empty means read-only mode
	ReceiptPollSeconds  int      `json:"receipt_poll_seconds"`  // Receipt polling interval (default: 2)
	CurrencySymbol      string   `json:"currency_symbol"`       // Display suffix for native prices (default: ETH)

	// Contract addresses
	RegistryAddress string `json:"registry_address"` // Event registry contract
	TicketNFT       string `json:"ticket_nft"`       // Ticket NFT contract
	ResaleAddress   string `json:"resale_address"`   // Resale market contract

	// Refund claiming
	ClaimDelaySeconds int `json:"claim_delay_seconds"` // Spacing between batch claim submissions (default: 1)

	// Local database
	DBFileName string `json:"db_file_name"` // SQLite file under the home dir (default: ticketd.db)

	// Content store (Pinata)
	PinataJWT     string `json:"pinata_jwt"`     // API token; empty disables uploads
	PinataGateway string `json:"pinata_gateway"` // Gateway host for pinned content URLs
	UploadsBase   string `json:"uploads_base"`   // Host serving legacy relative banner paths
}
