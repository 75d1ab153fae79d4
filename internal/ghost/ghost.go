// Package ghost drafts takedown notices for the exposure clusters of a
// finished report. Each notice cites the legal basis matching the
// recipient's jurisdiction and starts its life in drafted state; delivery
// is the job of an external collaborator.
package ghost

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"ghostscan/pkg/domain"
	"ghostscan/pkg/logger"
	"ghostscan/pkg/recipient"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configure notice generation.
type Options struct {
	// SeverityThreshold is the minimum cluster severity that triggers a
	// notice. Clusters below it are reported but not acted on.
	SeverityThreshold float64
	// RequesterName and RequesterEmail identify the requesting party on the
	// rendered documents.
	RequesterName  string
	RequesterEmail string
}

// Ghost generates takedown notices.
type Ghost struct {
	recipients *recipient.Registry
	options    Options
	now        func() time.Time
}

// New creates a Ghost resolving contacts through the given registry.
func New(recipients *recipient.Registry, options Options) *Ghost {
	return &Ghost{recipients: recipients, options: options, now: time.Now}
}

// WithThreshold returns a Ghost sharing this one's registry but using the
// given severity threshold. Negative thresholds return the receiver
// unchanged.
func (g *Ghost) WithThreshold(threshold float64) *Ghost {
	if threshold < 0 {
		return g
	}
	options := g.options
	options.SeverityThreshold = threshold

	return &Ghost{recipients: g.recipients, options: options, now: g.now}
}

// Generate drafts at most one notice per (cluster, recipient) pair for
// every cluster at or above the severity threshold. Clusters whose sources
// have no known recipient are skipped, never failed: generation always
// succeeds with whatever subset is addressable.
func (g *Ghost) Generate(ctx context.Context,
	scanID domain.ScanID,
	report *domain.ScanReport) []domain.TakedownNotice {
	var notices []domain.TakedownNotice
	type noticeKey struct {
		clusterID string
		contact   string
	}
	seen := make(map[noticeKey]struct{})

	for _, cluster := range report.Clusters {
		if cluster.Severity < g.options.SeverityThreshold {
			continue
		}

		for _, sourceName := range cluster.Sources() {
			rec, err := g.recipients.Resolve(sourceName)
			if err != nil {
				logger.Info(ctx, "skipping notice for unresolvable recipient",
					zap.String("source", sourceName),
					zap.String("clusterId", cluster.ID))

				continue
			}

			key := noticeKey{clusterID: cluster.ID, contact: rec.Contact}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			notice, err := g.draft(scanID, cluster, sourceName, rec, report.IdentityToken)
			if err != nil {
				logger.Error(ctx, "could not render notice",
					zap.String("source", sourceName),
					zap.String("clusterId", cluster.ID),
					zap.Error(err))

				continue
			}
			notices = append(notices, notice)
		}
	}

	return notices
}

func (g *Ghost) draft(scanID domain.ScanID,
	cluster domain.ExposureCluster,
	sourceName string,
	rec recipient.Recipient,
	token domain.IdentityToken) (domain.TakedownNotice, error) {
	basis := legalBasisFor(rec.Jurisdiction)
	templates, ok := noticeTemplates[string(basis)]
	if !ok {
		return domain.TakedownNotice{}, fmt.Errorf("no templates for legal basis %q", basis)
	}

	now := g.now().UTC()
	data := noticeData{
		RecipientName:  rec.DisplayName,
		IdentityToken:  string(token),
		Handle:         cluster.PrimaryHandle(),
		Evidence:       evidenceLines(cluster, sourceName),
		RequesterName:  g.options.RequesterName,
		RequesterEmail: g.options.RequesterEmail,
		Date:           now.Format("2 January 2006"),
	}

	var subject, body strings.Builder
	if err := templates.subject.Execute(&subject, data); err != nil {
		return domain.TakedownNotice{}, fmt.Errorf("could not render subject: %w", err)
	}
	if err := templates.body.Execute(&body, data); err != nil {
		return domain.TakedownNotice{}, fmt.Errorf("could not render body: %w", err)
	}

	return domain.TakedownNotice{
		ID:           domain.NoticeID(uuid.New()),
		ScanID:       scanID,
		ClusterID:    cluster.ID,
		Source:       sourceName,
		Recipient:    rec.Contact,
		Jurisdiction: rec.Jurisdiction,
		LegalBasis:   basis,
		Subject:      subject.String(),
		Body:         body.String(),
		Status:       domain.NoticeStatusDrafted,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// legalBasisFor picks the regulation cited for a recipient jurisdiction.
func legalBasisFor(j domain.Jurisdiction) domain.LegalBasis {
	switch j {
	case domain.JurisdictionEU:
		return domain.LegalBasisGDPR
	case domain.JurisdictionUSCalifornia:
		return domain.LegalBasisCCPA
	case domain.JurisdictionOther:
		return domain.LegalBasisGeneric
	}

	return domain.LegalBasisGeneric
}

// evidenceLines lists the cluster members held by the addressed source so
// the recipient can locate the data.
func evidenceLines(cluster domain.ExposureCluster, sourceName string) []string {
	var lines []string
	for _, m := range cluster.Members {
		if m.Source != sourceName {
			continue
		}
		line := m.Handle
		if len(m.Evidence) > 0 {
			parts := make([]string, 0, len(m.Evidence))
			for k, v := range m.Evidence {
				parts = append(parts, k+": "+v)
			}
			sort.Strings(parts)
			line += " (" + strings.Join(parts, ", ") + ")"
		}
		lines = append(lines, line)
	}

	return lines
}
