package service

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/yndnr/wazuh-cli-go/internal/cli/connection"
	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
)

// Manager implements the manager control operations.
type Manager struct {
	d *Dispatcher
}

// NewManager creates the manager service.
func NewManager(d *Dispatcher) *Manager {
	return &Manager{d: d}
}

// Status returns the state of every manager daemon, sorted by name.
// A non-empty filter keeps only services whose name contains it.
func (s *Manager) Status(ctx context.Context, filter string) ([]domain.ServiceStatus, error) {
	const op = "manager.status"

	req, err := connection.NewRequest(http.MethodGet, "/manager/status", nil, nil)
	if err != nil {
		return nil, annotate(err, op, "")
	}

	var data itemList[map[string]string]
	if _, err := s.d.Do(ctx, op, "", req, &data); err != nil {
		return nil, err
	}
	if fe := data.failure(""); fe != nil {
		return nil, fe.WithOp(op, "")
	}

	var out []domain.ServiceStatus
	for _, item := range data.AffectedItems {
		for name, state := range item {
			if filter != "" && !strings.Contains(name, filter) {
				continue
			}
			out = append(out, domain.ServiceStatus{Name: name, State: domain.ParseServiceState(state)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Info returns the manager installation details.
func (s *Manager) Info(ctx context.Context) (domain.ManagerInfo, error) {
	const op = "manager.info"

	req, err := connection.NewRequest(http.MethodGet, "/manager/info", nil, nil)
	if err != nil {
		return domain.ManagerInfo{}, annotate(err, op, "")
	}

	var data itemList[domain.ManagerInfo]
	if _, err := s.d.Do(ctx, op, "", req, &data); err != nil {
		return domain.ManagerInfo{}, err
	}
	if len(data.AffectedItems) == 0 {
		if fe := data.failure(""); fe != nil {
			return domain.ManagerInfo{}, fe.WithOp(op, "")
		}
		return domain.ManagerInfo{}, &domain.Error{Kind: domain.KindAPI, Op: op, Message: "empty response"}
	}
	return data.AffectedItems[0], nil
}

// Restart asks the manager to restart all its daemons.
func (s *Manager) Restart(ctx context.Context) (domain.Ack, error) {
	const op = "manager.restart"

	req, err := connection.NewRequest(http.MethodPut, "/manager/restart", nil, nil)
	if err != nil {
		return domain.Ack{}, annotate(err, op, "")
	}

	var data itemList[any]
	msg, err := s.d.Do(ctx, op, "", req, &data)
	if err != nil {
		return domain.Ack{}, err
	}
	if fe := data.failure(""); fe != nil {
		return domain.Ack{}, fe.WithOp(op, "")
	}
	return domain.Ack{Target: "manager", Message: msg}, nil
}
