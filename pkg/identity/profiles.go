package identity

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/Shahir-collab/bus-routes-website/pkg/session"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const usersCollection = "users"

// ProfileStore holds the user documents that carry each user's role.
type ProfileStore interface {
	Get(ctx context.Context, uid string) (session.UserProfile, bool, error)
	Create(ctx context.Context, profile session.UserProfile) error
	// Watch calls onChange with the current document and then on every change
	// until ctx is done. exists is false while the document is missing.
	Watch(ctx context.Context, uid string, onChange func(profile session.UserProfile, exists bool)) error
}

type profileDocument struct {
	Name  string `firestore:"name"`
	Email string `firestore:"email"`
	Role  string `firestore:"role"`
}

func (d profileDocument) toProfile(uid string) session.UserProfile {
	return session.UserProfile{
		UID:   uid,
		Name:  d.Name,
		Email: d.Email,
		Role:  session.ParseRole(d.Role),
	}
}

type FirestoreProfiles struct {
	Client *firestore.Client
}

func (f *FirestoreProfiles) Get(ctx context.Context, uid string) (session.UserProfile, bool, error) {
	snapshot, err := f.Client.Collection(usersCollection).Doc(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return session.UserProfile{UID: uid, Role: session.RoleUser}, false, nil
	}
	if err != nil {
		return session.UserProfile{}, false, fmt.Errorf("identity: get profile %s: %w", uid, err)
	}

	var document profileDocument
	if err := snapshot.DataTo(&document); err != nil {
		return session.UserProfile{}, false, fmt.Errorf("identity: decode profile %s: %w", uid, err)
	}

	return document.toProfile(uid), true, nil
}

// Create stores a new user document. New accounts always get the user role.
func (f *FirestoreProfiles) Create(ctx context.Context, profile session.UserProfile) error {
	_, err := f.Client.Collection(usersCollection).Doc(profile.UID).Set(ctx, map[string]interface{}{
		"name":      profile.Name,
		"email":     profile.Email,
		"role":      session.RoleUser.String(),
		"createdAt": firestore.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("identity: create profile %s: %w", profile.UID, err)
	}

	return nil
}

func (f *FirestoreProfiles) Watch(ctx context.Context, uid string, onChange func(profile session.UserProfile, exists bool)) error {
	iterator := f.Client.Collection(usersCollection).Doc(uid).Snapshots(ctx)
	defer iterator.Stop()

	for {
		snapshot, err := iterator.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}

			return fmt.Errorf("identity: watch profile %s: %w", uid, err)
		}

		if !snapshot.Exists() {
			onChange(session.UserProfile{UID: uid, Role: session.RoleUser}, false)
			continue
		}

		var document profileDocument
		if err := snapshot.DataTo(&document); err != nil {
			return fmt.Errorf("identity: decode profile %s: %w", uid, err)
		}

		onChange(document.toProfile(uid), true)
	}
}
