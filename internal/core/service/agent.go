package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/yndnr/wazuh-cli-go/internal/cli/connection"
	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
)

// Agents implements the agent operations.
type Agents struct {
	d *Dispatcher
}

// NewAgents creates the agent service.
func NewAgents(d *Dispatcher) *Agents {
	return &Agents{d: d}
}

// List returns one page of agents matching filter.
func (s *Agents) List(ctx context.Context, filter domain.AgentFilter) (domain.AgentList, error) {
	const op = "agent.list"
	if err := domain.ValidateFilter(filter); err != nil {
		return domain.AgentList{}, annotate(err, op, "")
	}

	req, err := connection.NewRequest(http.MethodGet, "/agents", filterQuery(filter), nil)
	if err != nil {
		return domain.AgentList{}, annotate(err, op, "")
	}

	var data itemList[domain.Agent]
	if _, err := s.d.Do(ctx, op, "", req, &data); err != nil {
		return domain.AgentList{}, err
	}
	return domain.AgentList{Items: data.AffectedItems, Total: data.TotalAffectedItems}, nil
}

// ActiveIDs returns the IDs of every active agent, excluding the manager.
// It pages through the full listing.
func (s *Agents) ActiveIDs(ctx context.Context) ([]string, error) {
	filter := domain.AgentFilter{Status: domain.AgentActive, Sort: "+id", Limit: domain.DefaultAgentLimit}

	var ids []string
	for {
		page, err := s.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		for _, a := range page.Items {
			if a.ID != domain.ManagerAgentID {
				ids = append(ids, a.ID)
			}
		}
		filter.Offset += len(page.Items)
		if len(page.Items) == 0 || filter.Offset >= page.Total {
			return ids, nil
		}
	}
}

// Get returns one agent.
func (s *Agents) Get(ctx context.Context, id string) (domain.Agent, error) {
	const op = "agent.get"
	if err := domain.ValidateAgentID(id); err != nil {
		return domain.Agent{}, annotate(err, op, id)
	}

	req, err := connection.NewRequest(http.MethodGet, "/agents", url.Values{"agents_list": {id}}, nil)
	if err != nil {
		return domain.Agent{}, annotate(err, op, id)
	}

	var data itemList[domain.Agent]
	if _, err := s.d.Do(ctx, op, id, req, &data); err != nil {
		return domain.Agent{}, err
	}
	if fe := data.failure(id); fe != nil {
		return domain.Agent{}, fe.WithOp(op, id)
	}
	for _, a := range data.AffectedItems {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.Agent{}, &domain.Error{Kind: domain.KindAPI, Op: op, Target: id, Status: http.StatusNotFound, Message: "agent does not exist"}
}

// Add registers a new agent and returns its ID and key.
func (s *Agents) Add(ctx context.Context, in domain.AddAgentRequest) (domain.AddedAgent, error) {
	const op = "agent.add"
	if err := domain.ValidateAddAgent(in); err != nil {
		return domain.AddedAgent{}, annotate(err, op, in.Name)
	}

	body := map[string]any{"name": in.Name}
	if in.IP != "" {
		body["ip"] = in.IP
	}
	if in.Force {
		body["force"] = map[string]any{"enabled": true}
	}
	req, err := connection.NewRequest(http.MethodPost, "/agents", nil, body)
	if err != nil {
		return domain.AddedAgent{}, annotate(err, op, in.Name)
	}

	var added domain.AddedAgent
	if _, err := s.d.Do(ctx, op, in.Name, req, &added); err != nil {
		return domain.AddedAgent{}, err
	}
	if added.ID == "" {
		return domain.AddedAgent{}, &domain.Error{Kind: domain.KindAPI, Op: op, Target: in.Name, Message: "response carried no agent ID"}
	}
	return added, nil
}

// Remove deletes an agent.
func (s *Agents) Remove(ctx context.Context, id string) (domain.Ack, error) {
	q := url.Values{
		"agents_list": {id},
		"status":      {"all"},
		"older_than":  {"0s"},
	}
	return s.action(ctx, "agent.remove", id, http.MethodDelete, "/agents", q)
}

// Restart asks an agent to restart.
func (s *Agents) Restart(ctx context.Context, id string) (domain.Ack, error) {
	return s.action(ctx, "agent.restart", id, http.MethodPut, "/agents/"+url.PathEscape(id)+"/restart", nil)
}

// Upgrade starts an upgrade of an agent. An empty version upgrades to the
// manager's version.
func (s *Agents) Upgrade(ctx context.Context, id string, opts domain.UpgradeOptions) (domain.Ack, error) {
	if err := domain.ValidateVersion(opts.Version); err != nil {
		return domain.Ack{}, annotate(err, "agent.upgrade", id)
	}
	q := url.Values{"agents_list": {id}}
	if v := domain.NormalizeVersion(opts.Version); v != "" {
		q.Set("upgrade_version", v)
	}
	if opts.Force {
		q.Set("force", "true")
	}
	return s.action(ctx, "agent.upgrade", id, http.MethodPut, "/agents/upgrade", q)
}

// Key returns the registration key of an agent.
func (s *Agents) Key(ctx context.Context, id string) (domain.AgentKey, error) {
	const op = "agent.key"
	if err := domain.ValidateAgentID(id); err != nil {
		return domain.AgentKey{}, annotate(err, op, id)
	}

	req, err := connection.NewRequest(http.MethodGet, "/agents/"+url.PathEscape(id)+"/key", nil, nil)
	if err != nil {
		return domain.AgentKey{}, annotate(err, op, id)
	}

	var data itemList[domain.AgentKey]
	if _, err := s.d.Do(ctx, op, id, req, &data); err != nil {
		return domain.AgentKey{}, err
	}
	if fe := data.failure(id); fe != nil {
		return domain.AgentKey{}, fe.WithOp(op, id)
	}
	if len(data.AffectedItems) == 0 {
		return domain.AgentKey{}, &domain.Error{Kind: domain.KindAPI, Op: op, Target: id, Status: http.StatusNotFound, Message: "agent does not exist"}
	}
	key := data.AffectedItems[0]
	if key.ID == "" {
		key.ID = id
	}
	return key, nil
}

// action runs a bulk-action endpoint for a single agent and checks that
// the agent was not reported in the failed items.
func (s *Agents) action(ctx context.Context, op, id, method, path string, q url.Values) (domain.Ack, error) {
	if err := domain.ValidateActionTarget(id); err != nil {
		return domain.Ack{}, annotate(err, op, id)
	}

	req, err := connection.NewRequest(method, path, q, nil)
	if err != nil {
		return domain.Ack{}, annotate(err, op, id)
	}

	var data itemList[any]
	msg, err := s.d.Do(ctx, op, id, req, &data)
	if err != nil {
		return domain.Ack{}, err
	}
	if fe := data.failure(id); fe != nil {
		return domain.Ack{}, fe.WithOp(op, id)
	}
	return domain.Ack{Target: id, Message: msg}, nil
}

func filterQuery(f domain.AgentFilter) url.Values {
	q := url.Values{}
	limit := f.Limit
	if limit == 0 {
		limit = domain.DefaultAgentLimit
	}
	q.Set("limit", strconv.Itoa(limit))
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}
	set := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	set("status", string(f.Status))
	set("os.platform", f.OSPlatform)
	set("version", f.Version)
	set("group", f.Group)
	set("search", f.Search)
	set("q", f.Query)
	set("sort", f.Sort)
	return q
}
