package domain

// DeploymentState is the lifecycle state of a deploy attempt.
type DeploymentState string

const (
	DeploymentIdle      DeploymentState = "IDLE"
	DeploymentInFlight  DeploymentState = "IN_FLIGHT"
	DeploymentSucceeded DeploymentState = "SUCCEEDED"
	DeploymentFailed    DeploymentState = "FAILED"
)

// IsTerminal reports whether the state can only be left by a reset
// (or, for Failed, by a retry).
func (s DeploymentState) IsTerminal() bool {
	return s == DeploymentSucceeded || s == DeploymentFailed
}

// DeploymentStatus is the orchestrator's view of the current deployment.
type DeploymentStatus struct {
	State   DeploymentState `json:"state"`
	Message string          `json:"message,omitempty"` // set only when Failed
	Result  *DeployResult   `json:"result,omitempty"`  // set only when Succeeded
}

// IdleStatus is the initial deployment status.
func IdleStatus() DeploymentStatus {
	return DeploymentStatus{State: DeploymentIdle}
}

// DeployResult is the opaque success payload of the deploy service.
type DeployResult struct {
	TransactionID string `json:"transactionId"`
	ContractID    string `json:"contractId,omitempty"`
}

// DeploymentRecord is one persisted deploy attempt.
// Corresponds to deployments table in PostgreSQL.
type DeploymentRecord struct {
	DeploymentID  string          `json:"deployment_id"`            // PK (uuid)
	SessionID     string          `json:"session_id"`               // wizard session that issued the attempt
	Network       string          `json:"network"`                  // stellar, solana
	Name          string          `json:"name"`                     // token name
	Symbol        string          `json:"symbol"`                   // token symbol
	Decimals      int             `json:"decimals"`                 // token decimals
	InitialSupply string          `json:"initial_supply"`           // decimal numeral
	AdminWallet   string          `json:"admin_wallet"`             // admin address
	HasMetadata   bool            `json:"has_metadata"`             // image or description was attached
	BaseFee       string          `json:"base_fee"`                 // decimal string
	MetadataFee   string          `json:"metadata_fee"`             // decimal string
	TotalFee      string          `json:"total_fee"`                // decimal string
	State         DeploymentState `json:"state"`                    // IN_FLIGHT, SUCCEEDED, FAILED
	TransactionID *string         `json:"transaction_id,omitempty"` // set on success (nullable)
	ErrorMessage  *string         `json:"error_message,omitempty"`  // set on failure (nullable)
	StartedAt     int64           `json:"started_at"`               // attempt start (ms)
	FinishedAt    *int64          `json:"finished_at,omitempty"`    // attempt end (ms, nullable)
}
