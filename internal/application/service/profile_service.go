package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"ens-identity-graph/internal/domain/entity"
	domain_service "ens-identity-graph/internal/domain/service"
	"ens-identity-graph/internal/infrastructure/cache"
	"ens-identity-graph/internal/infrastructure/config"
	"ens-identity-graph/internal/infrastructure/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	avatarTextKey      = "avatar"
	maxProfileLookups  = 4
	defaultIPFSGateway = "https://ipfs.io/ipfs/"
)

var (
	// ErrNameRequired is returned for an empty name
	ErrNameRequired = errors.New("name is required")

	// ErrAvatarNotFound is returned when a name has no avatar record
	ErrAvatarNotFound = errors.New("avatar not set")
)

// ProfileApplicationService resolves ENS profiles field by field, so one failing
// record never hides the others
type ProfileApplicationService struct {
	resolver domain_service.NameResolver
	textKeys []string
	gateway  string
	profiles *cache.Memory[*entity.Profile]
	avatars  *cache.Memory[string]
	logger   *logger.Logger
}

// NewProfileApplicationService creates a new profile service
func NewProfileApplicationService(
	cfg *config.ProfileConfig,
	resolver domain_service.NameResolver,
	logger *logger.Logger,
) *ProfileApplicationService {
	gateway := cfg.IPFSGateway
	if gateway == "" {
		gateway = defaultIPFSGateway
	}
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}

	return &ProfileApplicationService{
		resolver: resolver,
		textKeys: cfg.TextKeys,
		gateway:  gateway,
		profiles: cache.NewMemory[*entity.Profile](cfg.CacheTTL),
		avatars:  cache.NewMemory[string](cfg.CacheTTL),
		logger:   logger.WithComponent("profile-service"),
	}
}

// Resolve looks up the resolver, address, avatar and configured text records of a name.
// Lookups run concurrently and each failure is recorded on the profile under its field.
func (s *ProfileApplicationService) Resolve(ctx context.Context, name string) (*entity.Profile, error) {
	name = normalizeName(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	if cached, ok := s.profiles.Get(name); ok {
		return cloneProfile(cached), nil
	}

	profile := &entity.Profile{
		Name:  name,
		Texts: make(map[string]string),
	}
	var mu sync.Mutex
	record := func(field string, apply func(), err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			profile.AddError(field, err)
			return
		}
		apply()
	}

	var g errgroup.Group
	g.SetLimit(maxProfileLookups)

	g.Go(func() error {
		resolver, err := s.resolver.Resolver(ctx, name)
		record("resolver", func() { profile.Resolver = resolver }, err)
		return nil
	})
	g.Go(func() error {
		address, err := s.resolver.Address(ctx, name)
		record("address", func() { profile.Address = address }, err)
		return nil
	})
	g.Go(func() error {
		avatar, err := s.lookupAvatar(ctx, name)
		if errors.Is(err, ErrAvatarNotFound) {
			return nil
		}
		record("avatar", func() { profile.Avatar = avatar }, err)
		return nil
	})
	for _, key := range s.textKeys {
		if key == avatarTextKey {
			continue
		}
		g.Go(func() error {
			value, err := s.resolver.Text(ctx, name, key)
			record("text:"+key, func() {
				if value != "" {
					profile.Texts[key] = value
				}
			}, err)
			return nil
		})
	}
	_ = g.Wait()

	if len(profile.Errors) > 0 {
		s.logger.Debug("Profile resolved with errors",
			zap.String("name", name),
			zap.Any("errors", profile.Errors))
	} else {
		s.profiles.Set(name, cloneProfile(profile))
	}

	return profile, nil
}

// Avatar returns the avatar URL of a name with IPFS URIs rewritten to the gateway
func (s *ProfileApplicationService) Avatar(ctx context.Context, name string) (string, error) {
	name = normalizeName(name)
	if name == "" {
		return "", ErrNameRequired
	}
	return s.lookupAvatar(ctx, name)
}

func (s *ProfileApplicationService) lookupAvatar(ctx context.Context, name string) (string, error) {
	if avatar, ok := s.avatars.Get(name); ok {
		return avatar, nil
	}

	raw, err := s.resolver.Text(ctx, name, avatarTextKey)
	if err != nil {
		return "", fmt.Errorf("failed to read avatar record: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrAvatarNotFound
	}

	avatar := s.gatewayURL(raw)
	s.avatars.Set(name, avatar)
	return avatar, nil
}

// gatewayURL rewrites ipfs:// URIs to an HTTP gateway URL; other URIs are returned unchanged
func (s *ProfileApplicationService) gatewayURL(uri string) string {
	const scheme = "ipfs://"
	if len(uri) < len(scheme) || !strings.EqualFold(uri[:len(scheme)], scheme) {
		return uri
	}
	path := strings.TrimPrefix(uri[len(scheme):], "ipfs/")
	return s.gateway + path
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func cloneProfile(p *entity.Profile) *entity.Profile {
	out := *p
	out.Texts = make(map[string]string, len(p.Texts))
	for k, v := range p.Texts {
		out.Texts[k] = v
	}
	if p.Errors != nil {
		out.Errors = make(map[string]string, len(p.Errors))
		for k, v := range p.Errors {
			out.Errors[k] = v
		}
	}
	return &out
}
