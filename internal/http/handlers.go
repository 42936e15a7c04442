package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"ledgerdesk/internal/core"
	"ledgerdesk/internal/form"
	"ledgerdesk/internal/gateway"
	"ledgerdesk/internal/live"
	"ledgerdesk/internal/log"
	"ledgerdesk/internal/shell"
	"ledgerdesk/internal/view"
)

type shellModel struct {
	State      string
	Open       bool
	CloseReady bool
	OpenReady  bool
	ReadyIn    time.Duration
}

// chromeData feeds the top bar and the sidebar.
type chromeData struct {
	Shell   shellModel
	Sidebar view.SidebarModel
}

type tableData struct {
	view.TableModel
	Prev core.Month
	Next core.Month
	// Poll is true while the table should re-request itself.
	Poll bool
}

type formData struct {
	form.State
	Options      form.Options
	OptionsError string
	Selected     core.Account
	Currency     string
}

type pageData struct {
	chromeData
	Table tableData
	Form  formData
}

func (s *Server) shellModel() shellModel {
	snap := s.deps.Shell.Now()
	return shellModel{
		State:      string(snap.State),
		Open:       snap.State == shell.Open,
		CloseReady: snap.CloseReady,
		OpenReady:  snap.OpenReady,
		ReadyIn:    snap.ReadyIn,
	}
}

func (s *Server) chrome() chromeData {
	s.deps.Accounts.Load()
	return chromeData{Shell: s.shellModel(), Sidebar: s.deps.Accounts.Model()}
}

func (s *Server) table() tableData {
	m := s.deps.Transactions.Model()
	return tableData{
		TableModel: m,
		Prev:       m.Month.Shift(-1),
		Next:       m.Month.Shift(1),
		Poll:       m.State == view.TableLoading,
	}
}

func (s *Server) formData(ctx context.Context) formData {
	data := formData{
		State:    s.deps.Form.State(),
		Currency: s.deps.Formatter.Currency(),
	}
	data.Selected, _ = s.deps.Selection.Current()
	opts, err := s.deps.Form.LoadOptions(ctx)
	if err != nil {
		data.OptionsError = err.Error()
	}
	data.Options = opts
	return data
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	data := pageData{
		chromeData: s.chrome(),
		Table:      s.table(),
		Form:       s.formData(r.Context()),
	}
	s.render(w, r, NewHTMXResponse(), "index.html", data)
}

func (s *Server) handleSidebar(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	if r.URL.Query().Get("reload") == "1" {
		s.deps.Accounts.Reload()
	}
	s.render(w, r, NewHTMXResponse(), "sidebar", s.chrome())
}

func (s *Server) handleShellToggle(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	state := s.deps.Shell.Toggle()
	s.render(w, r, NewHTMXResponse().TriggerShellToggled(string(state)), "shell", s.chrome())
}

func (s *Server) handleSelectAccount(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Malformed request").Write(w)
		return
	}

	id := p.GetInt64("id")
	name := p.Get("name")
	if name == "" && id != 0 {
		if acc, ok := s.deps.Accounts.Lookup(id); ok {
			name = acc.Name
		}
	}
	if id == 0 && name == "" {
		BadRequestError("Choose an account").Write(w)
		return
	}

	s.deps.Selection.Select(id, name)
	s.requestLogger(r).InfoContext(r.Context(), "Account selected",
		log.FieldAccountID, id,
		log.FieldAccountName, name,
		log.FieldOperation, log.OpSelect)
	if s.deps.Hub != nil {
		s.deps.Hub.Broadcast(live.Event{Type: live.EventSelectionChanged, AccountID: id, Account: name})
	}

	s.render(w, r, NewHTMXResponse().TriggerSelectionChanged(id, name), "sidebar", s.chrome())
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	month, ok, err := ParseMonthParams(r.URL.Query(), s.deps.Transactions.Month())
	if err != nil {
		BadRequestError("Invalid month").Write(w)
		return
	}
	if ok {
		if err := s.deps.Transactions.SetMonth(month); err != nil {
			BadRequestError("Invalid month").Write(w)
			return
		}
	}
	if r.URL.Query().Get("reload") == "1" {
		s.deps.Transactions.Reload()
	}
	s.render(w, r, NewHTMXResponse(), "table", s.table())
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Malformed request").Write(w)
		return
	}

	if p.Has("delta") {
		if _, err := s.deps.Transactions.ShiftMonth(int(p.GetInt64("delta"))); err != nil {
			BadRequestError("Invalid month").Write(w)
			return
		}
	} else {
		values := url.Values{"year": {p.Get("year")}, "month": {p.Get("month")}}
		month, ok, err := ParseMonthParams(values, s.deps.Transactions.Month())
		if err != nil {
			BadRequestError("Invalid month").Write(w)
			return
		}
		if !ok {
			BadRequestError("Provide delta or year and month").Write(w)
			return
		}
		if err := s.deps.Transactions.SetMonth(month); err != nil {
			BadRequestError("Invalid month").Write(w)
			return
		}
	}
	s.render(w, r, NewHTMXResponse(), "table", s.table())
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	s.render(w, r, NewHTMXResponse(), "form", s.formData(r.Context()))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Malformed request").Write(w)
		return
	}

	fields := form.Fields{
		Date:        p.Get("date"),
		Payee:       p.Get("payee"),
		Amount:      p.Get("amount"),
		CategoryID:  p.GetInt64("category"),
		Memo:        p.Get("memo"),
		Cleared:     p.GetBool("cleared"),
		AccountID:   p.GetInt64("account"),
		AccountName: p.Get("accountName"),
	}
	if fields.AccountID != 0 && fields.AccountName == "" {
		acc, ok := s.deps.Accounts.Lookup(fields.AccountID)
		if !ok {
			s.appMetrics.submissionsRejected.Add(1)
			BadRequestError("Unknown account").Write(w)
			return
		}
		fields.AccountName = acc.Name
	}

	ctx := r.Context()
	err := s.deps.Form.Submit(ctx, fields)

	var verr *form.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &verr):
		s.appMetrics.submissionsRejected.Add(1)
		s.render(w, r, NewHTMXResponse().Status(http.StatusUnprocessableEntity), "form", s.formData(ctx))
		return
	case errors.Is(err, form.ErrBusy):
		s.appMetrics.submissionsRejected.Add(1)
		ErrorResponse(http.StatusConflict, "A submission is already in progress").Write(w)
		return
	default:
		s.appMetrics.submissionsFailed.Add(1)
		errType := log.ErrorTypeNetwork
		if gateway.IsCommandError(err) {
			errType = log.ErrorTypeGateway
		}
		logFields := log.NewFields().WithTransaction(fields.AccountName, fields.Payee, 0)
		logFields["error_type"] = errType
		s.events.LogError(ctx, "Transaction creation failed", err, log.ComponentForm, log.OpCreate, logFields)
		s.render(w, r, NewHTMXResponse().Status(http.StatusBadGateway).TriggerErrorNotification(err.Error()), "form", s.formData(ctx))
		return
	}

	s.appMetrics.transactionsCreated.Add(1)

	account, _ := s.deps.Selection.Current()
	if fields.AccountID != 0 {
		account = core.Account{ID: fields.AccountID, Name: fields.AccountName}
	}
	month := s.deps.Transactions.Month()
	if d, err := core.ParseDate(s.deps.Form.State().Fields.Date); err == nil {
		month = core.MonthOf(d)
	}
	if s.deps.Hub != nil {
		s.deps.Hub.Broadcast(live.Event{
			Type:      live.EventTransactionsChanged,
			AccountID: account.ID,
			Account:   account.Name,
			Year:      month.Year,
			Month:     month.Month,
		})
	}

	resp := NewHTMXResponse().
		TriggerTransactionsChanged(account.ID, month.Year, month.Month).
		TriggerFormReset().
		TriggerSuccessNotification("Transaction added")
	s.render(w, r, resp, "form", s.formData(ctx))
}
