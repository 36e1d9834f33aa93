package newsletterinfra

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Abraxas-365/mailflow/pkg/errx"
	"github.com/Abraxas-365/mailflow/pkg/fsx"
	"github.com/Abraxas-365/mailflow/pkg/newsletter"
)

const (
	archiveRoot  = "newsletters"
	batchPrefix  = "batch-"
	summaryFile  = "summary.json"
	reportSuffix = ".json"
)

// FSArchive writes delivery reports under
// newsletters/<tenant>/<newsletter>/<group>/ on any fsx.FileSystem.
// Reports carry recipient IDs only, never addresses.
type FSArchive struct {
	fs fsx.FileSystem
}

func NewFSArchive(fs fsx.FileSystem) *FSArchive {
	return &FSArchive{fs: fs}
}

func (a *FSArchive) SaveBatch(ctx context.Context, scope newsletter.Scope, result newsletter.BatchResult) error {
	name := fmt.Sprintf("%s%04d%s", batchPrefix, result.BatchIndex, reportSuffix)
	return a.write(ctx, a.fs.Join(a.dir(scope), name), result)
}

type summaryReport struct {
	newsletter.WorkflowResult
	TenantID string `json:"tenantId"`
}

func (a *FSArchive) SaveSummary(ctx context.Context, scope newsletter.Scope, result newsletter.WorkflowResult) error {
	report := summaryReport{WorkflowResult: result, TenantID: scope.TenantID.String()}
	return a.write(ctx, a.fs.Join(a.dir(scope), summaryFile), report)
}

func (a *FSArchive) LoadSummary(ctx context.Context, scope newsletter.Scope) (*newsletter.WorkflowResult, error) {
	data, err := a.fs.ReadFile(ctx, a.fs.Join(a.dir(scope), summaryFile))
	if errx.IsType(err, errx.TypeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, archiveError(err, scope)
	}
	var report summaryReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, archiveError(err, scope)
	}
	return &report.WorkflowResult, nil
}

func (a *FSArchive) LoadBatches(ctx context.Context, scope newsletter.Scope) ([]newsletter.BatchResult, error) {
	dir := a.dir(scope)
	entries, err := a.fs.List(ctx, dir)
	if errx.IsType(err, errx.TypeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, archiveError(err, scope)
	}

	var results []newsletter.BatchResult
	for _, e := range entries {
		if e.IsDir || !strings.HasPrefix(e.Name, batchPrefix) || !strings.HasSuffix(e.Name, reportSuffix) {
			continue
		}
		data, err := a.fs.ReadFile(ctx, a.fs.Join(dir, e.Name))
		if err != nil {
			return nil, archiveError(err, scope)
		}
		var r newsletter.BatchResult
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, archiveError(err, scope)
		}
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].BatchIndex < results[j].BatchIndex })
	return results, nil
}

func (a *FSArchive) dir(scope newsletter.Scope) string {
	return a.fs.Join(archiveRoot, scope.TenantID.String(), scope.NewsletterID.String(), scope.GroupUUID.String())
}

func (a *FSArchive) write(ctx context.Context, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return newsletter.Errors().NewWithCause(newsletter.ErrArchive, err).WithDetail("path", path)
	}
	if err := a.fs.WriteFile(ctx, path, data); err != nil {
		return newsletter.Errors().NewWithCause(newsletter.ErrArchive, err).WithDetail("path", path)
	}
	return nil
}

func archiveError(err error, scope newsletter.Scope) error {
	return newsletter.Errors().NewWithCause(newsletter.ErrArchive, err).
		WithDetail("groupUUID", scope.GroupUUID.String())
}
