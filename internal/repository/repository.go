// Package repository persists finished analysis results to the graph
// database so investigators can explore flagged accounts and rings with
// graph tooling. The HTTP pipeline works without it; export only runs when a
// graph URI is configured.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adithya/forensiq/internal/domain"
	"github.com/adithya/forensiq/internal/graph"
)

// Repository encapsulates graph persistence of analysis results.
type Repository struct {
	client graph.Client
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client) *Repository {
	return &Repository{client: client}
}

// ExportResult writes one finished session: a session node carrying the
// summary, account nodes with their suspicion scores, ring nodes, and
// MEMBER_OF edges between them. Re-exporting the same session overwrites the
// previous snapshot.
func (r *Repository) ExportResult(ctx context.Context, sessionID string, result *domain.AnalysisResult) error {
	if sessionID == "" {
		return errors.New("session id is required")
	}
	if result == nil {
		return errors.New("result is required")
	}

	params := map[string]any{
		"sessionId":   sessionID,
		"exportedAt":  time.Now().UTC().Format(time.RFC3339Nano),
		"totalAccts":  result.Summary.TotalAccountsAnalyzed,
		"flagged":     result.Summary.SuspiciousAccountsFlagged,
		"ringCount":   result.Summary.FraudRingsDetected,
		"processingS": result.Summary.ProcessingTimeSeconds,
	}
	if _, err := r.client.ExecuteWrite(ctx, upsertSessionCypher, params); err != nil {
		return fmt.Errorf("export session %s: %w", sessionID, err)
	}

	if len(result.SuspiciousAccounts) > 0 {
		params := map[string]any{
			"sessionId": sessionID,
			"accounts":  accountParams(result.SuspiciousAccounts),
		}
		if _, err := r.client.ExecuteWrite(ctx, upsertAccountsCypher, params); err != nil {
			return fmt.Errorf("export accounts for session %s: %w", sessionID, err)
		}
	}

	if len(result.FraudRings) > 0 {
		params := map[string]any{
			"sessionId": sessionID,
			"rings":     ringParams(result.FraudRings),
		}
		if _, err := r.client.ExecuteWrite(ctx, upsertRingsCypher, params); err != nil {
			return fmt.Errorf("export rings for session %s: %w", sessionID, err)
		}
	}

	return nil
}

// RingCount returns the number of rings stored for a session.
func (r *Repository) RingCount(ctx context.Context, sessionID string) (int, error) {
	if sessionID == "" {
		return 0, errors.New("session id is required")
	}

	res, err := r.client.ExecuteRead(ctx, countRingsCypher, map[string]any{
		"sessionId": sessionID,
	})
	if err != nil {
		return 0, fmt.Errorf("count rings for session %s: %w", sessionID, err)
	}
	if len(res.Records) == 0 {
		return 0, nil
	}
	return toInt(res.Records[0]["total"]), nil
}

func accountParams(accounts []domain.SuspiciousAccount) []map[string]any {
	result := make([]map[string]any, 0, len(accounts))
	for _, a := range accounts {
		result = append(result, map[string]any{
			"accountId": a.AccountID,
			"props": map[string]any{
				"suspicionScore": a.SuspicionScore,
				"suspicionLabel": a.SuspicionLabel,
				"patterns":       strings.Join(a.DetectedPatterns, ","),
				"primaryRingId":  a.RingID,
			},
		})
	}
	return result
}

func ringParams(rings []domain.FraudRing) []map[string]any {
	result := make([]map[string]any, 0, len(rings))
	for _, ring := range rings {
		props := map[string]any{
			"patternType": string(ring.PatternType),
			"riskScore":   ring.RiskScore,
			"riskLabel":   ring.RiskLabel,
			"memberCount": len(ring.MemberAccounts),
		}
		if ring.CycleLength > 0 {
			props["cycleLength"] = ring.CycleLength
		}
		if ring.ChainLength > 0 {
			props["chainLength"] = ring.ChainLength
		}
		if ring.AmountPattern != "" {
			props["amountPattern"] = ring.AmountPattern
		}
		if ring.TemporalWindowHrs > 0 {
			props["temporalWindowHours"] = ring.TemporalWindowHrs
		}
		if ring.AggregatorNode != "" {
			props["aggregatorNode"] = ring.AggregatorNode
		}
		if ring.DisperserNode != "" {
			props["disperserNode"] = ring.DisperserNode
		}
		result = append(result, map[string]any{
			"ringId":  ring.RingID,
			"props":   props,
			"members": ring.MemberAccounts,
		})
	}
	return result
}

func toInt(val any) int {
	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

const upsertSessionCypher = `
MERGE (s:AnalysisSession {sessionId: $sessionId})
SET s.exportedAt = $exportedAt,
    s.totalAccountsAnalyzed = $totalAccts,
    s.suspiciousAccountsFlagged = $flagged,
    s.fraudRingsDetected = $ringCount,
    s.processingTimeSeconds = $processingS
RETURN s.sessionId AS sessionId
`

const upsertAccountsCypher = `
MATCH (s:AnalysisSession {sessionId: $sessionId})
UNWIND $accounts AS account
MERGE (a:Account {accountId: account.accountId})
SET a += account.props
MERGE (s)-[:FLAGGED]->(a)
RETURN count(a) AS total
`

const upsertRingsCypher = `
MATCH (s:AnalysisSession {sessionId: $sessionId})
UNWIND $rings AS ring
MERGE (fr:FraudRing {ringId: ring.ringId, sessionId: $sessionId})
SET fr += ring.props
MERGE (s)-[:DETECTED]->(fr)
WITH fr, ring
UNWIND ring.members AS memberId
MERGE (a:Account {accountId: memberId})
MERGE (a)-[:MEMBER_OF]->(fr)
RETURN count(fr) AS total
`

const countRingsCypher = `
MATCH (:AnalysisSession {sessionId: $sessionId})-[:DETECTED]->(fr:FraudRing)
RETURN count(fr) AS total
`
