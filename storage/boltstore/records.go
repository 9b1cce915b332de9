package boltstore

import (
	"fmt"
	"time"
)

// The records below are plain DTOs, not the contracts' own in-memory
// types: crypto.Address and the contracts' state hold unexported fields
// and aren't JSON-friendly on their own, so a host snapshotting/restoring
// contract state encodes addresses and amounts as strings at this
// boundary (bech32 string, base-10 decimal string) rather than reaching
// into contract internals.

// BalanceRecord snapshots one Token account balance.
type BalanceRecord struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

// PutBalance stores addr's balance.
func (s *Store) PutBalance(addr, amount string) error {
	return s.put(bucketBalances, addr, BalanceRecord{Address: addr, Amount: amount})
}

// GetBalance retrieves addr's stored balance.
func (s *Store) GetBalance(addr string) (BalanceRecord, error) {
	var rec BalanceRecord
	err := s.get(bucketBalances, addr, &rec)
	return rec, err
}

// ForEachBalance visits every stored balance record.
func (s *Store) ForEachBalance(fn func(BalanceRecord) error) error {
	return s.forEach(bucketBalances, func() any { return new(BalanceRecord) }, func(_ string, dest any) error {
		return fn(*dest.(*BalanceRecord))
	})
}

// AllowanceRecord snapshots one Token (owner, spender) allowance.
type AllowanceRecord struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

func allowanceKey(owner, spender string) string { return owner + "|" + spender }

// PutAllowance stores the allowance owner has granted spender.
func (s *Store) PutAllowance(owner, spender, amount string) error {
	key := allowanceKey(owner, spender)
	return s.put(bucketAllowances, key, AllowanceRecord{Owner: owner, Spender: spender, Amount: amount})
}

// GetAllowance retrieves the stored (owner, spender) allowance.
func (s *Store) GetAllowance(owner, spender string) (AllowanceRecord, error) {
	var rec AllowanceRecord
	err := s.get(bucketAllowances, allowanceKey(owner, spender), &rec)
	return rec, err
}

// DeviceSnapshot mirrors registry.DeviceRecord in a JSON-friendly shape.
type DeviceSnapshot struct {
	Owner        string    `json:"owner"`
	DeviceType   int       `json:"device_type"`
	CapacityW    uint64    `json:"capacity_w"`
	Location     string    `json:"location"`
	Manufacturer string    `json:"manufacturer"`
	Model        string    `json:"model"`
	Firmware     string    `json:"firmware"`
	InstalledAt  time.Time `json:"installed_at"`

	Stake       string    `json:"stake"`
	Reputation  uint16    `json:"reputation"`
	Active      bool      `json:"active"`
	LastUpdated time.Time `json:"last_updated"`

	EventsParticipated uint64 `json:"events_participated"`
	EventsSuccessful   uint64 `json:"events_successful"`
	TotalEnergyWh      uint64 `json:"total_energy_wh"`
	HoursOnlineToday   uint32 `json:"hours_online_today"`
	OnlineDayBucket    uint64 `json:"online_day_bucket"`
}

// PutDevice stores a device snapshot keyed by owner address.
func (s *Store) PutDevice(d DeviceSnapshot) error {
	return s.put(bucketDevices, d.Owner, d)
}

// GetDevice retrieves the stored device snapshot for owner.
func (s *Store) GetDevice(owner string) (DeviceSnapshot, error) {
	var rec DeviceSnapshot
	err := s.get(bucketDevices, owner, &rec)
	return rec, err
}

// DeleteDevice removes a device snapshot (used after full withdrawal
// deactivates and the host chooses not to retain history).
func (s *Store) DeleteDevice(owner string) error {
	return s.delete(bucketDevices, owner)
}

// ForEachDevice visits every stored device snapshot.
func (s *Store) ForEachDevice(fn func(DeviceSnapshot) error) error {
	return s.forEach(bucketDevices, func() any { return new(DeviceSnapshot) }, func(_ string, dest any) error {
		return fn(*dest.(*DeviceSnapshot))
	})
}

// GridEventSnapshot mirrors gridservice.EventRecord.
type GridEventSnapshot struct {
	ID                     uint64    `json:"id"`
	EventType              int       `json:"event_type"`
	CreatedTs              time.Time `json:"created_ts"`
	DurationMinutes        uint64    `json:"duration_minutes"`
	TargetReductionKW      uint64    `json:"target_reduction_kw"`
	BaseCompensationRate   string    `json:"base_compensation_rate"`
	Severity               uint8     `json:"severity"`
	State                  int       `json:"state"`
	ExpectedEndTs          time.Time `json:"expected_end_ts"`
	VerificationDeadlineTs time.Time `json:"verification_deadline_ts"`
}

func eventKey(id uint64) string { return uint64Key(id) }

// PutGridEvent stores a grid event snapshot.
func (s *Store) PutGridEvent(e GridEventSnapshot) error {
	return s.put(bucketEvents, eventKey(e.ID), e)
}

// GetGridEvent retrieves the stored event snapshot for id.
func (s *Store) GetGridEvent(id uint64) (GridEventSnapshot, error) {
	var rec GridEventSnapshot
	err := s.get(bucketEvents, eventKey(id), &rec)
	return rec, err
}

// ParticipationSnapshot mirrors gridservice.Participation.
type ParticipationSnapshot struct {
	EventID      uint64    `json:"event_id"`
	Account      string    `json:"account"`
	CommittedWh  uint64    `json:"committed_wh"`
	HasActual    bool      `json:"has_actual"`
	ActualWh     uint64    `json:"actual_wh"`
	RewardMinted string    `json:"reward_minted"`
	State        int       `json:"state"`
	HasAck       bool      `json:"has_ack"`
	AckTs        time.Time `json:"ack_ts"`
}

func participationKey(eventID uint64, account string) string {
	return uint64Key(eventID) + "|" + account
}

// PutParticipation stores a participation snapshot.
func (s *Store) PutParticipation(p ParticipationSnapshot) error {
	return s.put(bucketParticipations, participationKey(p.EventID, p.Account), p)
}

// GetParticipation retrieves the stored participation snapshot.
func (s *Store) GetParticipation(eventID uint64, account string) (ParticipationSnapshot, error) {
	var rec ParticipationSnapshot
	err := s.get(bucketParticipations, participationKey(eventID, account), &rec)
	return rec, err
}

// ProposalSnapshot mirrors governance.Proposal.
type ProposalSnapshot struct {
	ID          uint64 `json:"id"`
	Proposer    string `json:"proposer"`
	Kind        int    `json:"kind"`
	Target      string `json:"target"`
	Enable      bool   `json:"enable"`
	Amount      string `json:"amount"`
	Value       uint16 `json:"value"`
	ContractID  int    `json:"contract_id"`
	Description string `json:"description"`

	CreatedAt     time.Time `json:"created_at"`
	VotingEndAt   time.Time `json:"voting_end_at"`
	TimelockEndAt time.Time `json:"timelock_end_at"`

	ForVotes       string `json:"for_votes"`
	AgainstVotes   string `json:"against_votes"`
	SupplySnapshot string `json:"supply_snapshot"`

	State             int `json:"state"`
	ExecutionAttempts int `json:"execution_attempts"`
}

// PutProposal stores a proposal snapshot.
func (s *Store) PutProposal(p ProposalSnapshot) error {
	return s.put(bucketProposals, uint64Key(p.ID), p)
}

// GetProposal retrieves the stored proposal snapshot for id.
func (s *Store) GetProposal(id uint64) (ProposalSnapshot, error) {
	var rec ProposalSnapshot
	err := s.get(bucketProposals, uint64Key(id), &rec)
	return rec, err
}

// AuditRecordSnapshot mirrors governance.AuditRecord.
type AuditRecordSnapshot struct {
	ID         string    `json:"id"`
	ProposalID uint64    `json:"proposal_id"`
	Kind       int       `json:"kind"`
	Caller     string    `json:"caller"`
	Timestamp  time.Time `json:"timestamp"`
	Outcome    string    `json:"outcome"`
}

// AppendAudit appends one audit record, keyed by its own ID so repeated
// appends never collide.
func (s *Store) AppendAudit(rec AuditRecordSnapshot) error {
	return s.put(bucketAudit, rec.ID, rec)
}

// ForEachAudit visits every stored audit record.
func (s *Store) ForEachAudit(fn func(AuditRecordSnapshot) error) error {
	return s.forEach(bucketAudit, func() any { return new(AuditRecordSnapshot) }, func(_ string, dest any) error {
		return fn(*dest.(*AuditRecordSnapshot))
	})
}

// uint64Key zero-pads id so lexicographic bucket-key order matches
// numeric order.
func uint64Key(id uint64) string {
	return fmt.Sprintf("%020d", id)
}
