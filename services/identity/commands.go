package identity

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/MarcGrol/sheetmusicshop/lib/myerrors"
	"github.com/MarcGrol/sheetmusicshop/lib/mylog"
	"github.com/MarcGrol/sheetmusicshop/services/identity/identityapi"
	"github.com/MarcGrol/sheetmusicshop/services/identity/identityevents"
)

func (s *service) CreateTopics(c context.Context) error {
	err := s.publisher.CreateTopic(c, identityevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", identityevents.TopicName, err)
	}
	return nil
}

// Current tells who is behind the session key. Without sign-in this is an anonymous guest.
func (s *service) Current(c context.Context, sessionUID string) (identityapi.Identity, error) {
	if sessionUID == "" {
		return identityapi.Identity{}, myerrors.NewInvalidInputError(fmt.Errorf("missing session"))
	}

	session, found, err := s.sessionStore.Get(c, sessionUID)
	if err != nil {
		return identityapi.Identity{}, myerrors.NewInternalError(err)
	}
	if !found {
		return identityapi.Identity{SessionUID: sessionUID, Mode: identityapi.ModeGuest}, nil
	}
	return session.toIdentity(), nil
}

func (s *service) signUp(c context.Context, req signUpRequest) (Member, error) {
	err := req.validate()
	if err != nil {
		return Member{}, myerrors.NewValidationError(err)
	}

	email := normalizeEmail(req.Email)

	s.logger.Log(c, email, mylog.SeverityInfo, "Sign-up of member %s", email)

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return Member{}, myerrors.NewInternalError(fmt.Errorf("error hashing password: %s", err))
	}

	member := Member{
		Email:        email,
		Name:         req.Name,
		Phone:        req.Phone,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    s.nower.Now(),
	}

	err = s.memberStore.RunInTransaction(c, func(c context.Context) error {
		_, exists, err := s.memberStore.Get(c, email)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if exists {
			return myerrors.NewConflictError(fieldError{field: "email", code: "email-taken", message: "이미 가입된 이메일 주소입니다."})
		}

		err = s.memberStore.Put(c, email, member)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		err = s.publisher.Publish(c, identityevents.TopicName, identityevents.MemberSignedUp{
			Email: email,
			Name:  member.Name,
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		return nil
	})
	if err != nil {
		return Member{}, err
	}

	return member, nil
}

func (s *service) signInMember(c context.Context, sessionUID string, email string, password string) (identityapi.Identity, error) {
	email = normalizeEmail(email)

	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Sign-in of member %s", email)

	member, found, err := s.memberStore.Get(c, email)
	if err != nil {
		return identityapi.Identity{}, myerrors.NewInternalError(err)
	}
	if !found {
		return identityapi.Identity{}, myerrors.NewAuthenticationError(fieldError{field: "email", code: "unknown-email", message: "등록되지 않은 이메일 주소입니다."})
	}

	err = bcrypt.CompareHashAndPassword(member.PasswordHash, []byte(password))
	if err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Log(c, sessionUID, mylog.SeverityWarn, "Stored password hash of %s unusable: %s", email, err)
		}
		return identityapi.Identity{}, myerrors.NewAuthenticationError(fieldError{field: "password", code: "wrong-password", message: "비밀번호가 올바르지 않습니다."})
	}

	if !member.Active {
		return identityapi.Identity{}, myerrors.NewAuthenticationError(fieldError{field: "email", code: "inactive", message: "비활성화된 계정입니다. 관리자에게 문의하세요."})
	}

	mode := identityapi.ModeMember
	if s.adminEmails[email] {
		mode = identityapi.ModeAdmin
	}

	now := s.nower.Now()
	session := SessionIdentity{
		SessionUID: sessionUID,
		Mode:       mode,
		Email:      member.Email,
		Name:       member.Name,
		Phone:      member.Phone,
		CreatedAt:  now,
	}

	err = s.sessionStore.RunInTransaction(c, func(c context.Context) error {
		err := s.sessionStore.Put(c, sessionUID, session)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		err = s.publisher.Publish(c, identityevents.TopicName, identityevents.MemberSignedIn{
			Email:      email,
			SessionUID: sessionUID,
			Admin:      mode == identityapi.ModeAdmin,
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		return nil
	})
	if err != nil {
		return identityapi.Identity{}, err
	}

	err = s.memberStore.RunInTransaction(c, func(c context.Context) error {
		member, found, err := s.memberStore.Get(c, email)
		if err != nil || !found {
			return err
		}
		member.LastLogin = &now
		return s.memberStore.Put(c, email, member)
	})
	if err != nil {
		s.logger.Log(c, sessionUID, mylog.SeverityWarn, "Error registering last login of %s: %s", email, err)
	}

	return session.toIdentity(), nil
}

func (s *service) signInGuest(c context.Context, sessionUID string) (identityapi.Identity, error) {
	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Continue as guest")

	session := SessionIdentity{
		SessionUID: sessionUID,
		Mode:       identityapi.ModeGuest,
		CreatedAt:  s.nower.Now(),
	}

	err := s.sessionStore.RunInTransaction(c, func(c context.Context) error {
		return s.sessionStore.Put(c, sessionUID, session)
	})
	if err != nil {
		return identityapi.Identity{}, myerrors.NewInternalError(err)
	}

	return session.toIdentity(), nil
}

func (s *service) signOut(c context.Context, sessionUID string) error {
	s.logger.Log(c, sessionUID, mylog.SeverityInfo, "Sign-out")

	return s.sessionStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		session, found, err := s.sessionStore.Get(c, sessionUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			return nil
		}

		err = s.sessionStore.Delete(c, sessionUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		if session.Email != "" {
			err = s.publisher.Publish(c, identityevents.TopicName, identityevents.MemberSignedOut{
				Email:      session.Email,
				SessionUID: sessionUID,
			})
			if err != nil {
				return myerrors.NewInternalError(err)
			}
		}

		return nil
	})
}

func (s *service) listMembers(c context.Context) ([]Member, error) {
	s.logger.Log(c, "", mylog.SeverityInfo, "Fetch all members")

	members, err := s.memberStore.Query(c, nil, "-CreatedAt")
	if err != nil {
		return nil, myerrors.NewInternalError(err)
	}
	return members, nil
}

func (s *service) setMemberActive(c context.Context, email string, active bool) (Member, error) {
	email = normalizeEmail(email)

	s.logger.Log(c, email, mylog.SeverityInfo, "Set member %s active: %v", email, active)

	var member Member
	err := s.memberStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		var found bool
		var err error
		member, found, err = s.memberStore.Get(c, email)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("member %s not found", email))
		}

		member.Active = active
		err = s.memberStore.Put(c, email, member)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return Member{}, err
	}
	return member, nil
}
