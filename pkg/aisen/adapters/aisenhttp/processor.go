package aisenhttp

import "github.com/strongdm/http-observe/pkg/aisen"

// PackageName and PackageVersion identify this middleware in an event's SDK
// package list.
const (
	PackageName    = "go:github.com/strongdm/http-observe/pkg/aisen/adapters/aisenhttp"
	PackageVersion = aisen.SDKVersion
)

// requestProcessor adds the request captured when the middleware ran.
type requestProcessor struct {
	snapshot aisen.RequestInfo
}

func newRequestProcessor(snapshot aisen.RequestInfo) *requestProcessor {
	return &requestProcessor{snapshot: snapshot}
}

// ProcessEvent fills in the request unless an earlier processor already set
// one, and records this package when the event carries SDK info.
func (p *requestProcessor) ProcessEvent(event *aisen.ErrorEvent) *aisen.ErrorEvent {
	if event.Request == nil {
		req := p.snapshot.Clone()
		event.Request = &req
	}

	if event.SDK != nil {
		sdk := event.SDK.Clone()
		sdk.Packages = append(sdk.Packages, aisen.SDKPackage{
			Name:    PackageName,
			Version: PackageVersion,
		})
		event.SDK = sdk
	}

	return event
}
