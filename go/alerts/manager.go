package alerts

import (
	"context"

	"go.yoptima.org/infra/go/metrics2"
	"go.yoptima.org/infra/go/now"
	"go.yoptima.org/infra/go/skerr"
	"go.yoptima.org/infra/go/sklog"
	"go.yoptima.org/infra/go/uniqueid"
)

// Manager regulates the alert lifecycle: it decides whether a new occurrence
// of a condition should fire, at what escalation level, and how the persisted
// record is created or advanced.
//
// Raise is safe to call from one goroutine per logical alert key. Two
// concurrent raises for the same key can race between lookup and write,
// producing duplicate rows or a lost escalation; callers needing that
// guarantee must serialize per key or move to a transactional store.
type Manager struct {
	store          Store
	policy         *Policy
	template       EmailTemplate
	ids            uniqueid.Generator
	dir            AdvertiserDirectory
	alertType      string
	affectedEntity string

	corruptRows *metrics2.Counter
}

// NewManager returns a Manager. alertType and affectedEntity classify every
// alert this Manager raises.
func NewManager(store Store, policy *Policy, template EmailTemplate, ids uniqueid.Generator, dir AdvertiserDirectory, alertType, affectedEntity string) *Manager {
	return &Manager{
		store:          store,
		policy:         policy,
		template:       template,
		ids:            ids,
		dir:            dir,
		alertType:      alertType,
		affectedEntity: affectedEntity,
		corruptRows:    metrics2.GetCounter("alert_metadata_duplicate_rows", map[string]string{"alert_type": alertType}),
	}
}

// RaiseRequest describes one occurrence of an alert condition.
type RaiseRequest struct {
	// AdvertiserID identifies the advertiser the condition concerns.
	AdvertiserID int64

	// Advertiser is the display name; when empty it is resolved through the
	// directory.
	Advertiser string

	// Hash is the content fingerprint of the condition.
	Hash string

	// EntityID optionally identifies the triggering entity.
	EntityID int64

	// DataLink points at the uploaded supporting evidence.
	DataLink string
}

// Raise runs the full lifecycle for one occurrence: load the existing record,
// compute the escalation level, create or advance the record, and persist it.
// It returns the alert ID to hand to the notification transport, or the empty
// string if no alert is warranted. On any store failure no identifier is
// returned and nothing is left half-written beyond what the error reports.
func (m *Manager) Raise(ctx context.Context, req RaiseRequest) (string, error) {
	name := req.Advertiser
	if name == "" {
		var err error
		name, err = m.dir.LookupName(ctx, req.AdvertiserID)
		if err != nil {
			return "", skerr.Wrapf(err, "resolving advertiser %d", req.AdvertiserID)
		}
	}

	existing, err := m.load(ctx, req)
	if err != nil {
		return "", skerr.Wrap(err)
	}

	level := m.policy.Decide(ctx, existing)
	if level == NoEscalation {
		sklog.Debugf("No alert required for advertiser %d hash %s", req.AdvertiserID, req.Hash)
		return "", nil
	}

	if existing == nil {
		return m.create(ctx, req, name)
	}

	if level <= existing.EscalationLevel && level != m.policy.Terminal().Level {
		// The boundary fallback (level 1 against an existing record) lands
		// here. Writing would break the monotonic level invariant, so there
		// is nothing to report.
		sklog.Debugf("Alert %s already at level %d; not writing level %d", existing.ID, existing.EscalationLevel, level)
		return "", nil
	}

	return m.advance(ctx, existing, req, name, level)
}

// load fetches the authoritative record for the request's logical alert key,
// or nil if none exists. Duplicate physical rows are reported and resolved in
// favor of the one with the greatest generation timestamp.
func (m *Manager) load(ctx context.Context, req RaiseRequest) (*Alert, error) {
	rows, err := m.store.Get(ctx, req.Hash, req.AdvertiserID, m.alertType)
	if err != nil {
		return nil, skerr.Wrapf(err, "loading alert for advertiser %d hash %s", req.AdvertiserID, req.Hash)
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return rows[0], nil
	default:
		sklog.Errorf("Alert metadata corrupted: %d rows for (%s, %d, %s); using the most recent", len(rows), req.Hash, req.AdvertiserID, m.alertType)
		m.corruptRows.Inc(1)
		authoritative := rows[0]
		for _, r := range rows[1:] {
			if r.GenerationTimestamp.After(authoritative.GenerationTimestamp) {
				authoritative = r
			}
		}
		return authoritative, nil
	}
}

// create materializes and appends a brand-new level 1 record.
func (m *Manager) create(ctx context.Context, req RaiseRequest, name string) (string, error) {
	details, err := m.template.RenderDetails(req.AdvertiserID, name)
	if err != nil {
		return "", skerr.Wrap(err)
	}
	a := &Alert{
		ID:                  m.ids.NewID(),
		Hash:                req.Hash,
		AdvertiserID:        req.AdvertiserID,
		Advertiser:          name,
		Type:                m.alertType,
		AffectedEntity:      m.affectedEntity,
		EntityID:            req.EntityID,
		EscalationLevel:     1,
		GenerationTimestamp: now.Now(ctx).In(m.policy.Location()),
		Active:              true,
		Delivered:           false,
		Message:             m.template.RenderMessage(req.AdvertiserID, name),
		DataLink:            req.DataLink,
		EmailDetails:        details,
	}
	if err := m.store.Append(ctx, a); err != nil {
		return "", skerr.Wrapf(err, "appending new alert %s", a.ID)
	}
	sklog.Infof("Created alert %s for advertiser %d (%s) at level 1", a.ID, req.AdvertiserID, name)
	return a.ID, nil
}

// advance moves an existing record to the given level, refreshing the message
// and payload but keeping the original generation timestamp, and replaces the
// physical row. If the delete fails the write is aborted so a duplicate row is
// never appended.
func (m *Manager) advance(ctx context.Context, existing *Alert, req RaiseRequest, name string, level int) (string, error) {
	details, err := m.template.RenderDetails(req.AdvertiserID, name)
	if err != nil {
		return "", skerr.Wrap(err)
	}
	upd := existing.Copy()
	upd.EscalationLevel = level
	upd.Message = m.template.RenderMessage(req.AdvertiserID, name)
	upd.EmailDetails = details

	if err := m.store.Delete(ctx, existing.ID); err != nil {
		return "", skerr.Wrapf(err, "deleting previous row for alert %s", existing.ID)
	}
	if err := m.store.Append(ctx, upd); err != nil {
		// The previous row is already gone; until the triggering event is
		// redelivered the logical alert has no row.
		return "", skerr.Wrapf(err, "appending alert %s at level %d", upd.ID, level)
	}
	sklog.Infof("Escalated alert %s for advertiser %d (%s) to level %d", upd.ID, req.AdvertiserID, name, level)
	return upd.ID, nil
}
