// Package codec converts inventory entities to and from the JSON-safe records
// stored in a snapshot. It never touches the store.
package codec

import (
	"fmt"

	"github.com/smallbiznis/flyroom/internal/backup/domain"
	inv "github.com/smallbiznis/flyroom/internal/inventory/domain"
)

// Encode converts a supported entity, by value or pointer, to its record form.
func Encode(entity any) (domain.Record, error) {
	switch e := entity.(type) {
	case *inv.User:
		return EncodeUser(e), nil
	case inv.User:
		return EncodeUser(&e), nil
	case *inv.Tray:
		return EncodeTray(e), nil
	case inv.Tray:
		return EncodeTray(&e), nil
	case *inv.Tag:
		return EncodeTag(e), nil
	case inv.Tag:
		return EncodeTag(&e), nil
	case *inv.Stock:
		return EncodeStock(e), nil
	case inv.Stock:
		return EncodeStock(&e), nil
	case *inv.StockTag:
		return EncodeStockTag(e), nil
	case inv.StockTag:
		return EncodeStockTag(&e), nil
	case *inv.Cross:
		return EncodeCross(e), nil
	case inv.Cross:
		return EncodeCross(&e), nil
	case *inv.ExternalReference:
		return EncodeExternalReference(e), nil
	case inv.ExternalReference:
		return EncodeExternalReference(&e), nil
	case *inv.PrintAgent:
		return EncodePrintAgent(e), nil
	case inv.PrintAgent:
		return EncodePrintAgent(&e), nil
	case *inv.PrintJob:
		return EncodePrintJob(e), nil
	case inv.PrintJob:
		return EncodePrintJob(&e), nil
	case *inv.FlipEvent:
		return EncodeFlipEvent(e), nil
	case inv.FlipEvent:
		return EncodeFlipEvent(&e), nil
	default:
		return nil, fmt.Errorf("codec: unsupported entity %T", entity)
	}
}

func EncodeUser(u *inv.User) domain.Record {
	return domain.Record{
		"id":                           u.ID,
		"tenant_id":                    u.TenantID,
		"email":                        u.Email,
		"password_hash":                u.PasswordHash,
		"full_name":                    u.FullName,
		"role":                         string(u.Role),
		"status":                       string(u.Status),
		"is_active":                    u.IsActive,
		"created_at":                   formatTime(u.CreatedAt),
		"last_login":                   formatTimePtr(u.LastLogin),
		"password_reset_token":         stringPtr(u.PasswordResetToken),
		"password_reset_token_expires": formatTimePtr(u.PasswordResetTokenExpiry),
		"is_email_verified":            u.IsEmailVerified,
		"email_verification_token":     stringPtr(u.EmailVerificationToken),
		"email_verification_sent_at":   formatTimePtr(u.EmailVerificationSentAt),
	}
}

func DecodeUser(rec domain.Record, tenantID string) (*inv.User, error) {
	r := newReader(domain.TableUsers, rec)
	u := &inv.User{
		ID:                       r.requiredString("id"),
		TenantID:                 tenantID,
		Email:                    r.requiredString("email"),
		PasswordHash:             r.requiredString("password_hash"),
		FullName:                 r.requiredString("full_name"),
		Role:                     enumOr(r, "role", inv.UserRoles, inv.UserRoleUser),
		Status:                   enumOr(r, "status", inv.UserStatuses, inv.UserStatusApproved),
		IsActive:                 r.boolOr("is_active", true),
		CreatedAt:                r.timeOrNow("created_at"),
		LastLogin:                r.optionalTime("last_login"),
		PasswordResetToken:       r.optionalString("password_reset_token"),
		PasswordResetTokenExpiry: r.optionalTime("password_reset_token_expires"),
		IsEmailVerified:          r.boolOr("is_email_verified", false),
		EmailVerificationToken:   r.optionalString("email_verification_token"),
		EmailVerificationSentAt:  r.optionalTime("email_verification_sent_at"),
	}
	if r.err != nil {
		return nil, r.err
	}
	return u, nil
}

func EncodeTray(t *inv.Tray) domain.Record {
	return domain.Record{
		"id":            t.ID,
		"tenant_id":     t.TenantID,
		"name":          t.Name,
		"description":   stringPtr(t.Description),
		"tray_type":     string(t.TrayType),
		"max_positions": t.MaxPositions,
		"rows":          intPtr(t.Rows),
		"cols":          intPtr(t.Cols),
		"created_at":    formatTime(t.CreatedAt),
	}
}

func DecodeTray(rec domain.Record, tenantID string) (*inv.Tray, error) {
	r := newReader(domain.TableTrays, rec)
	t := &inv.Tray{
		ID:           r.requiredString("id"),
		TenantID:     tenantID,
		Name:         r.requiredString("name"),
		Description:  r.optionalString("description"),
		TrayType:     enumOr(r, "tray_type", inv.TrayTypes, inv.TrayTypeNumeric),
		MaxPositions: r.intOr("max_positions", inv.DefaultMaxPositions),
		Rows:         r.optionalInt("rows"),
		Cols:         r.optionalInt("cols"),
		CreatedAt:    r.timeOrNow("created_at"),
	}
	if r.err != nil {
		return nil, r.err
	}
	return t, nil
}

func EncodeTag(t *inv.Tag) domain.Record {
	return domain.Record{
		"id":        t.ID,
		"tenant_id": t.TenantID,
		"name":      t.Name,
		"color":     stringPtr(t.Color),
	}
}

func DecodeTag(rec domain.Record, tenantID string) (*inv.Tag, error) {
	r := newReader(domain.TableTags, rec)
	t := &inv.Tag{
		ID:       r.requiredString("id"),
		TenantID: tenantID,
		Name:     r.requiredString("name"),
		Color:    r.optionalString("color"),
	}
	if r.err != nil {
		return nil, r.err
	}
	return t, nil
}

func EncodeStock(s *inv.Stock) domain.Record {
	return domain.Record{
		"id":                  s.ID,
		"tenant_id":           s.TenantID,
		"stock_id":            s.StockID,
		"genotype":            s.Genotype,
		"origin":              string(s.Origin),
		"repository":          enumPtr(s.Repository),
		"repository_stock_id": stringPtr(s.RepositoryStockID),
		"external_source":     stringPtr(s.ExternalSource),
		"original_genotype":   stringPtr(s.OriginalGenotype),
		"tray_id":             stringPtr(s.TrayID),
		"position":            stringPtr(s.Position),
		"owner_id":            stringPtr(s.OwnerID),
		"visibility":          string(s.Visibility),
		"hide_from_org":       s.HideFromOrg,
		"notes":               stringPtr(s.Notes),
		"is_active":           s.IsActive,
		"created_at":          formatTime(s.CreatedAt),
		"created_by_id":       stringPtr(s.CreatedByID),
		"modified_at":         formatTimePtr(s.ModifiedAt),
		"modified_by_id":      stringPtr(s.ModifiedByID),
		"external_metadata":   rawJSON(s.ExternalMetadata),
	}
}

func DecodeStock(rec domain.Record, tenantID string) (*inv.Stock, error) {
	r := newReader(domain.TableStocks, rec)
	s := &inv.Stock{
		ID:                r.requiredString("id"),
		TenantID:          tenantID,
		StockID:           r.requiredString("stock_id"),
		Genotype:          r.requiredString("genotype"),
		Origin:            enumOr(r, "origin", inv.StockOrigins, inv.StockOriginInternal),
		Repository:        optionalEnum(r, "repository", inv.StockRepositories),
		RepositoryStockID: r.optionalString("repository_stock_id"),
		ExternalSource:    r.optionalString("external_source"),
		OriginalGenotype:  r.optionalString("original_genotype"),
		TrayID:            r.optionalString("tray_id"),
		Position:          r.optionalString("position"),
		OwnerID:           r.optionalString("owner_id"),
		Visibility:        enumOr(r, "visibility", inv.StockVisibilities, inv.StockVisibilityLabOnly),
		HideFromOrg:       r.boolOr("hide_from_org", false),
		Notes:             r.optionalString("notes"),
		IsActive:          r.boolOr("is_active", true),
		CreatedAt:         r.timeOrNow("created_at"),
		CreatedByID:       r.optionalString("created_by_id"),
		ModifiedAt:        r.optionalTime("modified_at"),
		ModifiedByID:      r.optionalString("modified_by_id"),
		ExternalMetadata:  r.jsonBlob("external_metadata", ""),
	}
	if r.err != nil {
		return nil, r.err
	}
	return s, nil
}

func EncodeStockTag(st *inv.StockTag) domain.Record {
	return domain.Record{
		"stock_id": st.StockID,
		"tag_id":   st.TagID,
	}
}

func DecodeStockTag(rec domain.Record) (*inv.StockTag, error) {
	r := newReader(domain.TableStockTags, rec)
	st := &inv.StockTag{
		StockID: r.requiredString("stock_id"),
		TagID:   r.requiredString("tag_id"),
	}
	if r.err != nil {
		return nil, r.err
	}
	return st, nil
}

func EncodeCross(c *inv.Cross) domain.Record {
	return domain.Record{
		"id":                c.ID,
		"tenant_id":         c.TenantID,
		"name":              stringPtr(c.Name),
		"parent_female_id":  c.ParentFemaleID,
		"parent_male_id":    c.ParentMaleID,
		"offspring_id":      stringPtr(c.OffspringID),
		"planned_date":      formatTimePtr(c.PlannedDate),
		"executed_date":     formatTimePtr(c.ExecutedDate),
		"status":            string(c.Status),
		"expected_outcomes": rawJSON(c.ExpectedOutcomes),
		"notes":             stringPtr(c.Notes),
		"created_at":        formatTime(c.CreatedAt),
		"created_by_id":     stringPtr(c.CreatedByID),
	}
}

func DecodeCross(rec domain.Record, tenantID string) (*inv.Cross, error) {
	r := newReader(domain.TableCrosses, rec)
	c := &inv.Cross{
		ID:               r.requiredString("id"),
		TenantID:         tenantID,
		Name:             r.optionalString("name"),
		ParentFemaleID:   r.requiredString("parent_female_id"),
		ParentMaleID:     r.requiredString("parent_male_id"),
		OffspringID:      r.optionalString("offspring_id"),
		PlannedDate:      r.optionalTime("planned_date"),
		ExecutedDate:     r.optionalTime("executed_date"),
		Status:           enumOr(r, "status", inv.CrossStatuses, inv.CrossStatusPlanned),
		ExpectedOutcomes: r.jsonBlob("expected_outcomes", ""),
		Notes:            r.optionalString("notes"),
		CreatedAt:        r.timeOrNow("created_at"),
		CreatedByID:      r.optionalString("created_by_id"),
	}
	if r.err != nil {
		return nil, r.err
	}
	return c, nil
}

func EncodeExternalReference(e *inv.ExternalReference) domain.Record {
	return domain.Record{
		"id":          e.ID,
		"stock_id":    e.StockID,
		"source":      e.Source,
		"external_id": e.ExternalID,
		"data":        rawJSON(e.Data),
		"fetched_at":  formatTimePtr(e.FetchedAt),
	}
}

func DecodeExternalReference(rec domain.Record) (*inv.ExternalReference, error) {
	r := newReader(domain.TableExternalReferences, rec)
	e := &inv.ExternalReference{
		ID:         r.requiredString("id"),
		StockID:    r.requiredString("stock_id"),
		Source:     r.requiredString("source"),
		ExternalID: r.requiredString("external_id"),
		Data:       r.jsonBlob("data", ""),
		FetchedAt:  r.optionalTime("fetched_at"),
	}
	if r.err != nil {
		return nil, r.err
	}
	return e, nil
}

func EncodePrintAgent(a *inv.PrintAgent) domain.Record {
	return domain.Record{
		"id":           a.ID,
		"tenant_id":    a.TenantID,
		"name":         a.Name,
		"api_key":      a.APIKey,
		"printer_name": stringPtr(a.PrinterName),
		"label_format": a.LabelFormat,
		"last_seen":    formatTimePtr(a.LastSeen),
		"is_active":    a.IsActive,
		"created_at":   formatTime(a.CreatedAt),
	}
}

func DecodePrintAgent(rec domain.Record, tenantID string) (*inv.PrintAgent, error) {
	r := newReader(domain.TablePrintAgents, rec)
	a := &inv.PrintAgent{
		ID:          r.requiredString("id"),
		TenantID:    tenantID,
		Name:        r.requiredString("name"),
		APIKey:      r.requiredString("api_key"),
		PrinterName: r.optionalString("printer_name"),
		LabelFormat: r.stringOr("label_format", inv.DefaultLabelFormat),
		LastSeen:    r.optionalTime("last_seen"),
		IsActive:    r.boolOr("is_active", true),
		CreatedAt:   r.timeOrNow("created_at"),
	}
	if r.err != nil {
		return nil, r.err
	}
	return a, nil
}

func EncodePrintJob(j *inv.PrintJob) domain.Record {
	stockIDs := rawJSON(j.StockIDs)
	if stockIDs == nil {
		stockIDs = []any{}
	}
	return domain.Record{
		"id":            j.ID,
		"tenant_id":     j.TenantID,
		"agent_id":      stringPtr(j.AgentID),
		"created_by_id": stringPtr(j.CreatedByID),
		"status":        string(j.Status),
		"stock_ids":     stockIDs,
		"label_format":  j.LabelFormat,
		"copies":        j.Copies,
		"code_type":     j.CodeType,
		"created_at":    formatTime(j.CreatedAt),
		"claimed_at":    formatTimePtr(j.ClaimedAt),
		"completed_at":  formatTimePtr(j.CompletedAt),
		"error_message": stringPtr(j.ErrorMessage),
	}
}

func DecodePrintJob(rec domain.Record, tenantID string) (*inv.PrintJob, error) {
	r := newReader(domain.TablePrintJobs, rec)
	j := &inv.PrintJob{
		ID:           r.requiredString("id"),
		TenantID:     tenantID,
		AgentID:      r.optionalString("agent_id"),
		CreatedByID:  r.optionalString("created_by_id"),
		Status:       enumOr(r, "status", inv.PrintJobStatuses, inv.PrintJobStatusPending),
		StockIDs:     r.jsonBlob("stock_ids", "[]"),
		LabelFormat:  r.stringOr("label_format", inv.DefaultLabelFormat),
		Copies:       r.intOr("copies", 1),
		CodeType:     r.stringOr("code_type", inv.DefaultCodeType),
		CreatedAt:    r.timeOrNow("created_at"),
		ClaimedAt:    r.optionalTime("claimed_at"),
		CompletedAt:  r.optionalTime("completed_at"),
		ErrorMessage: r.optionalString("error_message"),
	}
	if r.err != nil {
		return nil, r.err
	}
	return j, nil
}

func EncodeFlipEvent(f *inv.FlipEvent) domain.Record {
	return domain.Record{
		"id":            f.ID,
		"stock_id":      f.StockID,
		"flipped_by_id": stringPtr(f.FlippedByID),
		"flipped_at":    formatTime(f.FlippedAt),
		"notes":         stringPtr(f.Notes),
		"created_at":    formatTime(f.CreatedAt),
	}
}

func DecodeFlipEvent(rec domain.Record) (*inv.FlipEvent, error) {
	r := newReader(domain.TableFlipEvents, rec)
	f := &inv.FlipEvent{
		ID:          r.requiredString("id"),
		StockID:     r.requiredString("stock_id"),
		FlippedByID: r.optionalString("flipped_by_id"),
		FlippedAt:   r.timeOrNow("flipped_at"),
		Notes:       r.optionalString("notes"),
		CreatedAt:   r.timeOrNow("created_at"),
	}
	if r.err != nil {
		return nil, r.err
	}
	return f, nil
}
