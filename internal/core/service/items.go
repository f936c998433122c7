package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"

	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
)

// itemList is the data member of list and bulk-action responses.
type itemList[T any] struct {
	AffectedItems      []T          `json:"affected_items"`
	TotalAffectedItems int          `json:"total_affected_items"`
	TotalFailedItems   int          `json:"total_failed_items"`
	FailedItems        []failedItem `json:"failed_items"`
}

type failedItem struct {
	Error struct {
		Code        int    `json:"code"`
		Message     string `json:"message"`
		Remediation string `json:"remediation"`
	} `json:"error"`
	IDs itemIDs `json:"id"`
}

// itemIDs accepts the id member as strings or numbers.
type itemIDs []string

func (ids *itemIDs) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			out = append(out, s)
			continue
		}
		var n json.Number
		if err := json.Unmarshal(r, &n); err != nil {
			return fmt.Errorf("item id: %w", err)
		}
		out = append(out, n.String())
	}
	*ids = out
	return nil
}

// Remote error codes with a meaningful HTTP equivalent.
var codeStatus = map[int]int{
	1701: http.StatusNotFound,   // agent does not exist
	1703: http.StatusBadRequest, // action not available for the manager
	1705: http.StatusConflict,   // name already present
	1706: http.StatusConflict,   // IP already present
	1707: http.StatusConflict,   // agent not active
	1726: http.StatusConflict,   // already upgrading
	1819: http.StatusConflict,   // already at the requested version
}

// failure returns the error recorded for target in the failed items, or for
// the first failed item when target is empty.
func (l itemList[T]) failure(target string) *domain.Error {
	for _, f := range l.FailedItems {
		if target != "" && !slices.Contains(f.IDs, target) {
			continue
		}
		status, ok := codeStatus[f.Error.Code]
		if !ok {
			status = http.StatusBadRequest
		}
		msg := f.Error.Message
		if f.Error.Remediation != "" {
			msg += " (" + f.Error.Remediation + ")"
		}
		return &domain.Error{Kind: domain.KindAPI, Status: status, Code: f.Error.Code, Message: msg}
	}
	return nil
}
