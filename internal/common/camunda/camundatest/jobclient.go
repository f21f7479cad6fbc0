// Package camundatest provides an in-memory worker.JobClient for testing job
// handlers without a broker.
package camundatest

import (
	"context"
	"sync"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"google.golang.org/grpc"
)

// JobClient records the commands a handler sends. Complete calls fail with
// the queued CompleteErrs, in order, before they succeed.
type JobClient struct {
	mu           sync.Mutex
	completeErrs []error

	CompleteCalls int
	Completed     []*pb.CompleteJobRequest
	Failed        []*pb.FailJobRequest
	Thrown        []*pb.ThrowErrorRequest
}

func NewJobClient(completeErrs ...error) *JobClient {
	return &JobClient{completeErrs: completeErrs}
}

func noRetry(context.Context, error) bool { return false }

func (c *JobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return commands.NewCompleteJobCommand(&gateway{client: c}, noRetry)
}

func (c *JobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return commands.NewFailJobCommand(&gateway{client: c}, noRetry)
}

func (c *JobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return commands.NewThrowErrorCommand(&gateway{client: c}, noRetry)
}

// gateway serves the three job commands; any other RPC panics on the nil
// embedded client.
type gateway struct {
	pb.GatewayClient
	client *JobClient
}

func (g *gateway) CompleteJob(_ context.Context, in *pb.CompleteJobRequest, _ ...grpc.CallOption) (*pb.CompleteJobResponse, error) {
	c := g.client
	c.mu.Lock()
	defer c.mu.Unlock()

	c.CompleteCalls++
	if len(c.completeErrs) > 0 {
		err := c.completeErrs[0]
		c.completeErrs = c.completeErrs[1:]
		return nil, err
	}
	c.Completed = append(c.Completed, in)
	return &pb.CompleteJobResponse{}, nil
}

func (g *gateway) FailJob(_ context.Context, in *pb.FailJobRequest, _ ...grpc.CallOption) (*pb.FailJobResponse, error) {
	g.client.mu.Lock()
	defer g.client.mu.Unlock()
	g.client.Failed = append(g.client.Failed, in)
	return &pb.FailJobResponse{}, nil
}

func (g *gateway) ThrowError(_ context.Context, in *pb.ThrowErrorRequest, _ ...grpc.CallOption) (*pb.ThrowErrorResponse, error) {
	g.client.mu.Lock()
	defer g.client.mu.Unlock()
	g.client.Thrown = append(g.client.Thrown, in)
	return &pb.ThrowErrorResponse{}, nil
}
