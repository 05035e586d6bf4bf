package server

import (
	"fmt"
	"sort"

	"github.com/morezero/attribute-converter/pkg/bootstrap"
	"github.com/morezero/attribute-converter/pkg/converter"
	"github.com/morezero/attribute-converter/pkg/dispatcher"
	"github.com/morezero/attribute-converter/pkg/events"
	"github.com/morezero/attribute-converter/pkg/service"
	"github.com/morezero/attribute-converter/pkg/transport"
)

const snapshotLogPrefix = "server:snapshot"

// snapshotBuilder turns a bootstrap document into a servable snapshot. The executor and
// publisher are shared by every snapshot it builds.
type snapshotBuilder struct {
	executor    *transport.Executor
	retryBudget int
	publisher   events.EventPublisher
}

func (b *snapshotBuilder) build(doc *bootstrap.Config, origin string) (*dispatcher.Snapshot, error) {
	router := service.NewRouter(service.NewRouterParams{
		Services:    service.NewStaticRegistry(doc.ServiceURLs()),
		Executor:    b.executor,
		RetryBudget: b.retryBudget,
	})
	caps, err := converter.Build(doc, router)
	if err != nil {
		return nil, fmt.Errorf("%s - %s: %w", snapshotLogPrefix, origin, err)
	}

	services := make([]dispatcher.ServiceInfo, 0, len(doc.Services))
	for name, svc := range doc.Services {
		services = append(services, dispatcher.ServiceInfo{Name: name, BaseURL: svc.BaseURL, Description: svc.Description})
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })

	return &dispatcher.Snapshot{
		Converter: converter.NewDispatcher(converter.NewDispatcherParams{Capabilities: caps, Publisher: b.publisher}),
		Services:  services,
		Origin:    origin,
	}, nil
}

// routerRetryBudget maps RETRY_BUDGET onto the router, where zero selects the default.
func routerRetryBudget(n int) int {
	if n == 0 {
		return -1
	}
	return n
}
