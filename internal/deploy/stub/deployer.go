// Package stub provides an in-memory deploy service for tests and dry runs.
package stub

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"sync"

	"github.com/stellar/go/strkey"

	"token-deploy-wizard/internal/domain"
)

// ErrScripted is the default failure returned by FailNext.
var ErrScripted = errors.New("stub deployer: scripted failure")

// Submission is one call recorded by the stub.
type Submission struct {
	DeploymentID string
	Draft        domain.TokenDraft
	Fees         domain.FeeBreakdown
}

// Deployer implements deploy.Deployer without network I/O.
// Results are derived from the draft so repeated runs are reproducible.
type Deployer struct {
	mu          sync.Mutex
	submissions []Submission
	failures    []error
	gate        chan struct{}
}

// NewDeployer creates a stub that succeeds on every call.
func NewDeployer() *Deployer {
	return &Deployer{}
}

// FailNext queues an error for the next call. A nil err queues ErrScripted.
func (d *Deployer) FailNext(err error) {
	if err == nil {
		err = ErrScripted
	}
	d.mu.Lock()
	d.failures = append(d.failures, err)
	d.mu.Unlock()
}

// Block makes subsequent calls wait until Release is called.
func (d *Deployer) Block() {
	d.mu.Lock()
	if d.gate == nil {
		d.gate = make(chan struct{})
	}
	d.mu.Unlock()
}

// Release unblocks all waiting and future calls.
func (d *Deployer) Release() {
	d.mu.Lock()
	if d.gate != nil {
		close(d.gate)
		d.gate = nil
	}
	d.mu.Unlock()
}

// Submissions returns a copy of all recorded calls.
func (d *Deployer) Submissions() []Submission {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Submission, len(d.submissions))
	copy(out, d.submissions)
	return out
}

// Calls returns the number of recorded calls.
func (d *Deployer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.submissions)
}

// Submit records the call and returns a deterministic result or the next queued failure.
func (d *Deployer) Submit(ctx context.Context, deploymentID string, draft domain.TokenDraft, fees domain.FeeBreakdown) (domain.DeployResult, error) {
	d.mu.Lock()
	d.submissions = append(d.submissions, Submission{DeploymentID: deploymentID, Draft: draft.Clone(), Fees: fees})
	gate := d.gate
	var fail error
	if len(d.failures) > 0 {
		fail = d.failures[0]
		d.failures = d.failures[1:]
	}
	n := len(d.submissions)
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.DeployResult{}, ctx.Err()
		}
	}
	if fail != nil {
		return domain.DeployResult{}, fail
	}

	sum := sha256.Sum256([]byte(draft.Symbol + "|" + draft.AdminWallet + "|" + draft.InitialSupply + "|" + strconv.Itoa(n)))
	contractID, err := strkey.Encode(strkey.VersionByteContract, sum[:])
	if err != nil {
		return domain.DeployResult{}, err
	}
	return domain.DeployResult{
		TransactionID: hex.EncodeToString(sum[:]),
		ContractID:    contractID,
	}, nil
}
