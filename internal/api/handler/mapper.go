package handler

import (
	"github.com/obalifehub/lifehub/internal/core/domain"
	"github.com/obalifehub/lifehub/internal/core/ports"
	"github.com/obalifehub/lifehub/internal/core/service"
)

func toProfileResponse(p *domain.SmartProfile) *profileResponse {
	if p == nil {
		return nil
	}
	return &profileResponse{
		SmartProfile:  *p,
		ReferralCode:  p.ReferralCode(),
		LevelProgress: domain.ProgressFor(p.TotalCoinsEarned),
	}
}

func toSessionResponse(token string, s *service.Session) sessionResponse {
	snap := s.Snapshot()
	return sessionResponse{
		Token:     token,
		SessionID: s.ID(),
		State:     snap.State.String(),
		Profile:   toProfileResponse(snap.Profile),
	}
}

func toMeResponse(snap service.Snapshot) meResponse {
	return meResponse{State: snap.State.String(), Profile: toProfileResponse(snap.Profile)}
}

func toProfileUpdate(req updateProfileRequest) domain.ProfileUpdate {
	u := domain.ProfileUpdate{
		FullName:          req.FullName,
		AvatarURL:         req.AvatarURL,
		PreferredLanguage: req.PreferredLanguage,
		AccessibilityMode: req.AccessibilityMode,
	}
	if req.Role != nil {
		r := domain.Role(*req.Role)
		u.Role = &r
	}
	return u
}

// toLedgerResponse enriches the profile returned by the ledger so the
// caller sees the new balance with its capabilities.
func toLedgerResponse(res *ports.LedgerResult) ledgerResponse {
	out := ledgerResponse{
		Amount:           res.Amount,
		AlreadyCompleted: res.AlreadyCompleted,
		Replayed:         res.Replayed,
	}
	if res.Profile != nil {
		sp := domain.Enrich(*res.Profile)
		out.Profile = toProfileResponse(&sp)
	}
	return out
}

func toTransactionResponses(txs []domain.CoinTransaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionResponse{
			ID:          tx.ID,
			Amount:      tx.Amount,
			Type:        string(tx.Type),
			Description: tx.Description,
			CreatedAt:   tx.CreatedAt,
		})
	}
	return out
}

func toRewardResponses(rewards []domain.Reward, balance int64) []rewardResponse {
	out := make([]rewardResponse, 0, len(rewards))
	for _, r := range rewards {
		out = append(out, rewardResponse{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			CoinCost:    r.CoinCost,
			Icon:        r.Icon,
			Category:    string(r.Category),
			Stock:       r.Stock,
			Affordable:  balance >= r.CoinCost && (r.Stock == nil || *r.Stock > 0),
		})
	}
	return out
}

func toClaimResponses(claims []domain.UserReward) []claimResponse {
	out := make([]claimResponse, 0, len(claims))
	for _, cl := range claims {
		out = append(out, claimResponse{
			ID:        cl.ID,
			RewardID:  cl.RewardID,
			ClaimedAt: cl.ClaimedAt,
			Used:      cl.Used,
			UsedAt:    cl.UsedAt,
		})
	}
	return out
}

func toActivityResponses(views []ports.ActivityView) []activityResponse {
	out := make([]activityResponse, 0, len(views))
	for _, v := range views {
		out = append(out, activityResponse{
			ID:          v.Activity.ID,
			Title:       v.Activity.Title,
			Description: v.Activity.Description,
			Category:    string(v.Activity.Category),
			Difficulty:  string(v.Activity.Difficulty),
			CoinReward:  v.Activity.CoinReward,
			Icon:        v.Activity.Icon,
			Completed:   v.Completed,
			Progress:    v.Progress,
			CompletedAt: v.CompletedAt,
		})
	}
	return out
}
