package grpc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/enderiumcraft/rbclauncher/src/internal/app"
	"github.com/enderiumcraft/rbclauncher/src/internal/errs"
	"github.com/enderiumcraft/rbclauncher/src/internal/process"
	"github.com/enderiumcraft/rbclauncher/src/internal/state"
	"github.com/enderiumcraft/rbclauncher/src/pkg/models"
)

// Launcher is the part of the launcher exposed over the control service
type Launcher interface {
	User() (string, bool)
	Busy() state.Operation
	UpdateStatus() models.UpdateStatus
	GameState() models.ProcessState
	CheckForUpdates(ctx context.Context) (*models.UpdateCheck, error)
	Launch(ctx context.Context, server string) (*process.Handle, error)
}

// VersionSource reports the installed versions
type VersionSource interface {
	Current() models.VersionState
}

// Server implements the LauncherControl service
type Server struct {
	launcher Launcher
	versions VersionSource
	onLaunch func()

	// Update watchers for streaming
	watchersMu sync.RWMutex
	watchers   []chan *structpb.Struct
}

// NewServer creates a new control server. onLaunch, if set, is called
// after a game was started through the service.
func NewServer(launcher Launcher, versions VersionSource, onLaunch func()) *Server {
	return &Server{
		launcher: launcher,
		versions: versions,
		onLaunch: onLaunch,
	}
}

// Register adds the service to g
func (s *Server) Register(g *grpc.Server) {
	g.RegisterService(&ServiceDesc, s)
}

// Listen opens address for the control service. Only loopback addresses
// are accepted.
func Listen(address string) (net.Listener, error) {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return nil, errs.Config("listen", fmt.Errorf("invalid control address %q: %w", address, err))
	}
	if ip := net.ParseIP(host); host != "localhost" && (ip == nil || !ip.IsLoopback()) {
		return nil, errs.Config("listen", fmt.Errorf("control address %s is not a loopback address", address))
	}
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return nil, errs.Network("listen", err)
	}
	return lis, nil
}

// Status returns the session, versions, update progress and game state
func (s *Server) Status(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	user, _ := s.launcher.User()
	versions := s.versions.Current()
	update := s.launcher.UpdateStatus()
	game := s.launcher.GameState()

	return structpb.NewStruct(map[string]any{
		"user":     user,
		"busy":     string(s.launcher.Busy()),
		"launcher": versions.BinaryVersion,
		"modpack":  versions.ContentVersion,
		"update":   statusFields(update),
		"game": map[string]any{
			"phase":       string(game.Phase),
			"exit_code":   game.ExitCode,
			"stderr_tail": game.StderrTail,
		},
	})
}

// CheckForUpdates runs an update check and returns the plan
func (s *Server) CheckForUpdates(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	check, err := s.launcher.CheckForUpdates(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(checkFields(check))
}

// Launch starts the game against the named server
func (s *Server) Launch(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "server name is required")
	}

	handle, err := s.launcher.Launch(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	log.Printf("[Control] Launched game on %s (pid %d)", req.GetValue(), handle.PID)
	if s.onLaunch != nil {
		s.onLaunch()
	}

	return structpb.NewStruct(map[string]any{
		"id":      handle.ID,
		"pid":     handle.PID,
		"profile": handle.Config.ProfileName,
	})
}

// WatchUpdates streams update status changes until the client leaves or
// the update reaches a terminal stage
func (s *Server) WatchUpdates(req *emptypb.Empty, stream grpc.ServerStream) error {
	ch := make(chan *structpb.Struct, 10)

	s.watchersMu.Lock()
	s.watchers = append(s.watchers, ch)
	s.watchersMu.Unlock()

	defer func() {
		s.watchersMu.Lock()
		for i, w := range s.watchers {
			if w == ch {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				break
			}
		}
		s.watchersMu.Unlock()
	}()

	for {
		select {
		case msg := <-ch:
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
			stage := msg.GetFields()["stage"].GetStringValue()
			if stage == string(models.StageCompleted) || stage == string(models.StageFailed) || stage == string(models.StageHandingOff) {
				return nil
			}
		case <-stream.Context().Done():
			return stream.Context().Err()
		}
	}
}

// BroadcastUpdateStatus sends an update status to all watchers. Slow
// watchers miss intermediate updates.
func (s *Server) BroadcastUpdateStatus(update models.UpdateStatus) {
	msg, err := structpb.NewStruct(statusFields(update))
	if err != nil {
		log.Printf("[Control] Failed to encode status: %v", err)
		return
	}

	s.watchersMu.RLock()
	defer s.watchersMu.RUnlock()

	for _, ch := range s.watchers {
		select {
		case ch <- msg:
		default:
			// Channel full, skip this update
		}
	}
}

// watcherCount is used by tests to wait for a subscription
func (s *Server) watcherCount() int {
	s.watchersMu.RLock()
	defer s.watchersMu.RUnlock()
	return len(s.watchers)
}

func statusFields(u models.UpdateStatus) map[string]any {
	return map[string]any{
		"stage":     string(u.Stage),
		"progress":  u.Progress,
		"message":   u.Message,
		"error":     u.Error,
		"completed": u.Completed,
	}
}

func checkFields(check *models.UpdateCheck) map[string]any {
	return map[string]any{
		"tag":              check.Manifest.Tag,
		"local_launcher":   check.Local.BinaryVersion,
		"local_modpack":    check.Local.ContentVersion,
		"remote_launcher":  check.Manifest.Versions.BinaryVersion,
		"remote_modpack":   check.Manifest.Versions.ContentVersion,
		"content_needed":   check.Plan.ContentNeeded,
		"binary_needed":    check.Plan.BinaryNeeded,
		"update_available": !check.Plan.Empty(),
	}
}

// toStatus maps launcher errors to gRPC status codes, keeping the message
func toStatus(err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, state.ErrBusy):
		code = codes.Unavailable
	case errors.Is(err, app.ErrNotLoggedIn), errors.Is(err, app.ErrUpdateRequired):
		code = codes.FailedPrecondition
	case errs.Is(err, errs.KindValidation):
		code = codes.InvalidArgument
	case errs.Is(err, errs.KindNetwork):
		code = codes.Unavailable
	case errs.Is(err, errs.KindConfig), errs.Is(err, errs.KindLaunch):
		code = codes.FailedPrecondition
	}
	return status.Error(code, err.Error())
}
