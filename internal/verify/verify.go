// Package verify orchestrates a full verification run: DNS, contact and
// registration checks, optional enrichment, cross-source discrepancy
// detection, then confidence and risk scoring.
package verify

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/praxis-labs/veracity/internal/collect"
	"github.com/praxis-labs/veracity/internal/confidence"
	"github.com/praxis-labs/veracity/internal/contact"
	"github.com/praxis-labs/veracity/internal/discrepancy"
	"github.com/praxis-labs/veracity/internal/dnscheck"
	"github.com/praxis-labs/veracity/internal/enrich"
	"github.com/praxis-labs/veracity/internal/model"
	"github.com/praxis-labs/veracity/internal/notify"
	"github.com/praxis-labs/veracity/internal/registration"
	"github.com/praxis-labs/veracity/internal/risk"
	"github.com/praxis-labs/veracity/internal/store"
)

// Orchestrator drives verification runs end to end and owns their status
// transitions. A run it starts always ends COMPLETED or FAILED.
type Orchestrator struct {
	store        store.Store
	dns          *dnscheck.Verifier
	contact      *contact.Verifier
	registration *registration.Verifier
	catalog      *collect.Catalog
	enricher     enrich.Enricher
	notifier     notify.Notifier
}

// New wires an Orchestrator. enricher and notifier may be nil.
func New(
	st store.Store,
	dns *dnscheck.Verifier,
	ct *contact.Verifier,
	reg *registration.Verifier,
	catalog *collect.Catalog,
	enricher enrich.Enricher,
	notifier notify.Notifier,
) *Orchestrator {
	if enricher == nil {
		enricher = enrich.Noop{}
	}
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Orchestrator{
		store:        st,
		dns:          dns,
		contact:      ct,
		registration: reg,
		catalog:      catalog,
		enricher:     enricher,
		notifier:     notifier,
	}
}

// Start returns the run a verification should execute under: the company's
// existing IN_PROGRESS run when there is one, otherwise a fresh one. Missing
// companies yield a NotFoundError.
func (o *Orchestrator) Start(ctx context.Context, companyID string) (*model.VerificationRun, error) {
	if _, err := o.store.GetCompany(ctx, companyID); err != nil {
		return nil, err
	}

	active, err := o.store.ActiveRun(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		zap.L().Info("reusing in-progress run",
			zap.String("company_id", companyID),
			zap.String("run_id", active.ID))
		return active, nil
	}

	run, err := o.store.CreateRun(ctx, companyID)
	if err != nil {
		// lost a race with a concurrent Start; the other run wins
		if model.IsConflict(err) {
			if active, aerr := o.store.ActiveRun(ctx, companyID); aerr == nil && active != nil {
				return active, nil
			}
		}
		return nil, err
	}

	o.notifier.Notify(ctx, notify.Event{
		Type:      notify.EventRunStarted,
		CompanyID: companyID,
		RunID:     run.ID,
	})
	return run, nil
}

// Execute runs every check for an IN_PROGRESS run and persists the outcome.
// Any escaping error marks the run FAILED before returning; a COMPLETED run
// carries the full result document.
func (o *Orchestrator) Execute(ctx context.Context, runID string) (*model.RunResult, error) {
	// Status transitions must land even when the caller's context is the
	// reason the run is failing; store writes for the run record itself run
	// detached, while the checks inside execute still honor cancellation.
	storeCtx := context.WithoutCancel(ctx)

	run, err := o.store.GetRun(storeCtx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status.Terminal() {
		return nil, model.NewConflictError("run %s already %s", runID, run.Status)
	}

	company, err := o.store.GetCompany(storeCtx, run.CompanyID)
	if err != nil {
		o.fail(storeCtx, run, err)
		return nil, err
	}

	result, err := o.execute(ctx, company, run)
	if err != nil {
		o.fail(storeCtx, run, err)
		return nil, err
	}

	if err := o.store.UpdateRunResult(storeCtx, runID, result); err != nil {
		o.fail(storeCtx, run, err)
		return nil, err
	}

	zap.L().Info("verification completed",
		zap.String("company_id", company.ID),
		zap.String("run_id", runID),
		zap.Int("risk_score", result.RiskScore),
		zap.String("risk_category", string(result.RiskCategory)))

	o.notifier.Notify(ctx, notify.Event{
		Type:      notify.EventRunCompleted,
		CompanyID: company.ID,
		RunID:     runID,
		Detail: map[string]any{
			"risk_score":    result.RiskScore,
			"risk_category": string(result.RiskCategory),
			"confidence":    result.Confidence,
		},
	})
	return result, nil
}

// Verify is the combined entry point used by the CLI and job runners.
func (o *Orchestrator) Verify(ctx context.Context, companyID string) (*model.VerificationRun, error) {
	run, err := o.Start(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if _, err := o.Execute(ctx, run.ID); err != nil {
		return nil, err
	}
	return o.store.GetRun(ctx, run.ID)
}

// Cancel marks an IN_PROGRESS run FAILED. Terminal runs are left alone.
func (o *Orchestrator) Cancel(ctx context.Context, runID string) error {
	run, err := o.store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status.Terminal() {
		return nil
	}
	if err := o.store.UpdateRunStatus(ctx, runID, model.RunStatusFailed, "canceled"); err != nil {
		return err
	}
	o.notifier.Notify(ctx, notify.Event{
		Type:      notify.EventRunFailed,
		CompanyID: run.CompanyID,
		RunID:     runID,
		Detail:    map[string]any{"reason": "canceled"},
	})
	return nil
}

// LatestResult returns the company's most recent run, completed or not.
func (o *Orchestrator) LatestResult(ctx context.Context, companyID string) (*model.VerificationRun, error) {
	run, err := o.store.LatestRun(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, model.NewNotFoundError("no verification runs for company %s", companyID)
	}
	return run, nil
}

// fail marks the run FAILED. It must work with a context that is already
// dead, so the write and the notification detach from it.
func (o *Orchestrator) fail(ctx context.Context, run *model.VerificationRun, cause error) {
	ctx = context.WithoutCancel(ctx)
	if err := o.store.UpdateRunStatus(ctx, run.ID, model.RunStatusFailed, cause.Error()); err != nil {
		zap.L().Error("mark run failed",
			zap.String("run_id", run.ID),
			zap.Error(err))
	}
	o.notifier.Notify(ctx, notify.Event{
		Type:      notify.EventRunFailed,
		CompanyID: run.CompanyID,
		RunID:     run.ID,
		Detail:    map[string]any{"error": cause.Error()},
	})
}

// dnsSignals is the DNS slice of a run's evidence.
type dnsSignals struct {
	verified       bool
	ageDays        *int
	sslValid       *bool
	matchesCompany bool
	confidence     float64
}

func (o *Orchestrator) checkDNS(ctx context.Context, company *model.Company) dnsSignals {
	var s dnsSignals
	if company.Domain == "" {
		return s
	}

	records := o.dns.VerifyRecords(ctx, company.Domain)
	s.verified = records.Verified
	s.matchesCompany = dnscheck.DomainMatchesCompany(company.Domain, company.LegalName)
	if records.Verified {
		s.ageDays = o.dns.DomainAge(ctx, company.Domain)
		s.sslValid = o.dns.CheckSSL(ctx, company.Domain)
	}

	quality := 0.5
	if len(records.MXRecords) > 0 {
		quality += 0.2
	}
	if len(records.NSRecords) > 0 {
		quality += 0.1
	}
	s.confidence = confidence.SourceConfidence(confidence.SourceDNSLookup, quality, records.Verified)
	return s
}

// contactConfidence averages the channels that were actually provided.
func contactConfidence(res contact.Result) float64 {
	var sum float64
	n := 0
	if res.Email != nil {
		n++
		if res.Email.Valid {
			sum += 1.0
		}
	}
	if res.Phone != nil {
		n++
		if res.Phone.Valid {
			sum += 1.0
		}
	}
	if n == 0 {
		return 0.0
	}
	return sum / float64(n)
}

// registrationConfidence folds the degraded path into a usable score: a
// well-formed number with no responding directory is weak evidence, not none.
func registrationConfidence(cr registration.CrossRefResult) float64 {
	if cr.Degraded {
		if cr.Verified {
			return 0.5
		}
		return 0.0
	}
	return cr.Consistency
}

// addressNeutralConfidence stands in while no address data is collected for
// the company; the confidence rollup still weights the dimension.
const addressNeutralConfidence = 0.5

// dataConsistency rolls the per-field discrepancy results into one score,
// renormalizing around the address dimension when no source reported one.
func dataConsistency(name discrepancy.Result, addr discrepancy.AddressResult, reg discrepancy.Result) float64 {
	if addr.SourcesChecked > 0 {
		return discrepancy.OverallConsistency(name, addr, reg).OverallConfidence
	}
	if name.SourcesChecked == 0 && reg.SourcesChecked == 0 {
		return 0.5
	}
	return (name.Confidence*0.3 + reg.Confidence*0.4) / 0.7
}

func (o *Orchestrator) sourceReliability(reports []registration.SourceReport) float64 {
	sources := make([]confidence.ReliabilitySource, 0, len(reports))
	for _, r := range reports {
		st := confidence.SourceType(o.catalog.SourceType(r.Source))
		sources = append(sources, confidence.ReliabilitySource{
			Source:      r.Source,
			Reliability: confidence.SourceConfidence(st, 0.8, r.Matched),
		})
	}
	return confidence.SourceReliabilityAvg(sources)
}

func (o *Orchestrator) execute(ctx context.Context, company *model.Company, run *model.VerificationRun) (*model.RunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "verify: run canceled")
	}

	dns := o.checkDNS(ctx, company)
	contactRes := o.contact.VerifyContactInfo(ctx, company.Email, company.Phone)
	crossRef := o.registration.CrossReference(ctx, company)

	nameSources, numberSources := sourceValues(crossRef.Reports)
	nameRes := discrepancy.DetectName(company.LegalName, nameSources)
	regRes := discrepancy.DetectRegistration(company.RegistrationNumber, numberSources)
	addrRes := discrepancy.DetectAddress(discrepancy.Address{}, nil)
	consistency := dataConsistency(nameRes, addrRes, regRes)

	suspiciousKeywords := 0
	if o.enricher.Available() {
		enrichment, err := o.enricher.Enrich(ctx, company)
		if err != nil {
			zap.L().Warn("enrichment failed",
				zap.String("company_id", company.ID),
				zap.Error(err))
		} else if enrichment != nil {
			suspiciousKeywords = len(enrichment.Flags)
		}
	}

	emailValid, emailExists := emailSignals(contactRes.Email)
	phoneValid, carrierValid := phoneSignals(contactRes.Phone)

	conf := confidence.OverallConfidence(
		dns.confidence,
		registrationConfidence(crossRef),
		contactConfidence(contactRes),
		addressNeutralConfidence,
		consistency,
	)

	assessment := risk.Overall(risk.Input{
		DNSVerified:          dns.verified,
		DomainAgeDays:        dns.ageDays,
		RegistrationMatches:  crossRef.SourcesMatched,
		TotalSources:         crossRef.SourcesQueried,
		EmailValid:           emailValid,
		PhoneValid:           phoneValid,
		EmailExists:          emailExists,
		PhoneCarrierValid:    carrierValid,
		DomainMatchesCompany: dns.matchesCompany,
		SSLValid:             dns.sslValid,
		SuspiciousKeywords:   suspiciousKeywords,
		DataConsistencyScore: consistency,
		SourceReliabilityAvg: o.sourceReliability(crossRef.Reports),
	})

	// A run canceled mid flight must not complete with checks that all
	// degraded for the wrong reason.
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "verify: run canceled")
	}

	if err := o.persistDataPoints(ctx, company, contactRes, crossRef); err != nil {
		return nil, err
	}

	result := &model.RunResult{
		RiskScore:    assessment.RiskScore,
		RiskCategory: assessment.RiskCategory,
		RiskBreakdown: map[string]int{
			"dns":          assessment.Breakdown.DNSRisk,
			"registration": assessment.Breakdown.RegistrationRisk,
			"contact":      assessment.Breakdown.ContactRisk,
			"domain":       assessment.Breakdown.DomainRisk,
			"cross_source": assessment.Breakdown.CrossSourceRisk,
		},
		Confidence:              conf.Score,
		ConfidenceLevel:         string(conf.Level),
		ConfidenceParts:         conf.Breakdown,
		DNSVerified:             dns.verified,
		EmailValid:              emailValid,
		PhoneValid:              phoneValid,
		RegistrationConsistency: crossRef.Consistency,
		Discrepancies:           resultDiscrepancies(nameRes, regRes),
		Sources:                 runSources(company, crossRef),
	}
	return result, nil
}

func sourceValues(reports []registration.SourceReport) (names, numbers []discrepancy.SourceValue) {
	for _, r := range reports {
		if r.Name != "" {
			names = append(names, discrepancy.SourceValue{Source: r.Source, Value: r.Name})
		}
		if r.Number != "" {
			numbers = append(numbers, discrepancy.SourceValue{Source: r.Source, Value: r.Number})
		}
	}
	return names, numbers
}

func emailSignals(res *contact.EmailResult) (valid bool, exists *bool) {
	if res == nil {
		return false, nil
	}
	return res.Valid, res.Exists
}

func phoneSignals(res *contact.PhoneResult) (valid bool, carrier *bool) {
	if res == nil {
		return false, nil
	}
	return res.Valid, res.CarrierValid
}

func resultDiscrepancies(nameRes, regRes discrepancy.Result) []model.ResultDiscrepancy {
	var out []model.ResultDiscrepancy
	for _, d := range nameRes.Discrepancies {
		out = append(out, model.ResultDiscrepancy{
			FieldName:   model.FieldLegalName,
			Severity:    string(nameRes.Severity),
			Description: fmt.Sprintf("%s reported %q", d.Source, d.Reported),
		})
	}
	for _, d := range regRes.Discrepancies {
		out = append(out, model.ResultDiscrepancy{
			FieldName:   model.FieldRegistrationNumber,
			Severity:    string(regRes.Severity),
			Description: fmt.Sprintf("%s reported %q", d.Source, d.Reported),
		})
	}
	return out
}

func runSources(company *model.Company, crossRef registration.CrossRefResult) []string {
	sources := make([]string, 0, len(crossRef.Reports)+1)
	if company.Domain != "" {
		sources = append(sources, "dns")
	}
	for _, r := range crossRef.Reports {
		sources = append(sources, r.Source)
	}
	return sources
}

func (o *Orchestrator) persistDataPoints(ctx context.Context, company *model.Company, contactRes contact.Result, crossRef registration.CrossRefResult) error {
	var dps []model.DataPoint

	for _, r := range crossRef.Reports {
		st := confidence.SourceType(o.catalog.SourceType(r.Source))
		score := confidence.SourceConfidence(st, 0.8, r.Matched)
		if r.Name != "" {
			dps = append(dps, model.DataPoint{
				CompanyID:       company.ID,
				DataType:        model.DataTypeRegistration,
				FieldName:       model.FieldLegalName,
				FieldValue:      r.Name,
				Source:          r.Source,
				ConfidenceScore: score,
				Verified:        r.Matched,
			})
		}
		if r.Number != "" {
			dps = append(dps, model.DataPoint{
				CompanyID:       company.ID,
				DataType:        model.DataTypeRegistration,
				FieldName:       model.FieldRegistrationNumber,
				FieldValue:      r.Number,
				Source:          r.Source,
				ConfidenceScore: score,
				Verified:        r.Matched,
			})
		}
	}

	if contactRes.Email != nil {
		dps = append(dps, model.DataPoint{
			CompanyID:       company.ID,
			DataType:        model.DataTypeContact,
			FieldName:       model.FieldEmail,
			FieldValue:      contactRes.Email.Email,
			Source:          "contact_check",
			ConfidenceScore: contactPointScore(contactRes.Email.Valid),
			Verified:        contactRes.Email.Valid,
		})
	}
	if contactRes.Phone != nil {
		dps = append(dps, model.DataPoint{
			CompanyID:       company.ID,
			DataType:        model.DataTypeContact,
			FieldName:       model.FieldPhone,
			FieldValue:      contactRes.Phone.Phone,
			Source:          "contact_check",
			ConfidenceScore: contactPointScore(contactRes.Phone.Valid),
			Verified:        contactRes.Phone.Valid,
		})
	}

	if len(dps) == 0 {
		return nil
	}
	if err := o.store.SaveDataPoints(ctx, dps); err != nil {
		return eris.Wrap(err, "verify: persist data points")
	}
	return nil
}

func contactPointScore(valid bool) float64 {
	return confidence.SourceConfidence(confidence.SourceUserProvided, 0.7, valid)
}
