package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/acmeid/login-orchestrator/internal/domain"
	"github.com/acmeid/login-orchestrator/internal/orchestration"
	"github.com/acmeid/login-orchestrator/internal/service/login"
)

// Workflow and activity names. These are part of the persisted history:
// renaming one breaks replay of in-flight instances.
const (
	WorkflowLogin = "login-with-mfa"

	EventMfaCode = "MfaCode"

	ActivityStartLogin    = "start-login"
	ActivityCompleteLogin = "complete-login"
	ActivityInvalidateMfa = "invalidate-mfa"
	ActivityRecordLogin   = "record-login"
)

// Terminal results of the login workflow.
const (
	ResultOK                 = "OK"
	ResultInvalidCredentials = "INVALID_CREDENTIALS"
	ResultMFAInvalid         = "MFA_INVALID"
)

type startLoginOutput struct {
	Found       bool   `json:"found"`
	UserID      string `json:"user_id,omitempty"`
	ChallengeID string `json:"challenge_id,omitempty"`
}

type completeLoginInput struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
}

// Register wires the login workflow and its activities into the runtime.
func Register(rt *orchestration.Runtime, registry *orchestration.Registry, svc *login.Service) {
	rt.RegisterWorkflow(WorkflowLogin, Login)
	RegisterActivities(registry, svc)
}

// Login is the MFA login orchestration. Input is the username. It issues
// a one-time code, suspends until MfaCode events deliver the user's
// submissions, and validates each one against the challenge store. The
// challenge is treated as an acquired resource: once created, any exit
// other than the success path invalidates it through compensation.
func Login(wctx *orchestration.Context) (result string, err error) {
	scope := wctx.NewCompensationScope()
	defer func() { result, err = scope.Finish(result, err) }()

	out, err := wctx.CallActivity(ActivityStartLogin, wctx.Input())
	if err != nil {
		return "", err
	}
	var started startLoginOutput
	if err := json.Unmarshal([]byte(out), &started); err != nil {
		return "", fmt.Errorf("decode %s result: %w", ActivityStartLogin, err)
	}
	if !started.Found {
		return ResultInvalidCredentials, nil
	}
	scope.Register(ActivityInvalidateMfa, started.UserID)

	for attempt := 1; attempt <= domain.MaxChallengeAttempts; attempt++ {
		code, err := wctx.WaitForEvent(EventMfaCode)
		if err != nil {
			return "", err
		}

		input, err := json.Marshal(completeLoginInput{UserID: started.UserID, Code: code})
		if err != nil {
			return "", err
		}
		verdict, err := wctx.CallActivity(ActivityCompleteLogin, string(input))
		if err != nil {
			return "", err
		}
		if verdict != "true" {
			continue
		}

		if _, err := wctx.CallActivity(ActivityRecordLogin, started.UserID); err != nil {
			return "", err
		}
		scope.Commit()
		return ResultOK, nil
	}

	return ResultMFAInvalid, nil
}

// RegisterActivities binds the workflow's activity names to the login
// service. Every activity here is idempotent, as the executor may
// deliver an invocation more than once.
func RegisterActivities(registry *orchestration.Registry, svc *login.Service) {
	registry.Register(ActivityStartLogin, func(ctx context.Context, input string) (string, error) {
		challenge, err := svc.StartLogin(ctx, input)
		if err != nil {
			return "", err
		}
		out := startLoginOutput{}
		if challenge != nil {
			out.Found = true
			out.UserID = challenge.UserID.String()
			out.ChallengeID = challenge.ID.String()
		}
		// The code itself stays out of the activity result so it is
		// never persisted into orchestration history.
		encoded, err := json.Marshal(out)
		if err != nil {
			return "", err
		}
		return string(encoded), nil
	})

	registry.Register(ActivityCompleteLogin, func(ctx context.Context, input string) (string, error) {
		var in completeLoginInput
		if err := json.Unmarshal([]byte(input), &in); err != nil {
			return "", fmt.Errorf("decode %s input: %w", ActivityCompleteLogin, err)
		}
		userID, err := uuid.Parse(in.UserID)
		if err != nil {
			return "", fmt.Errorf("parse user id: %w", err)
		}
		ok, err := svc.CompleteLogin(ctx, userID, in.Code)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(ok), nil
	})

	registry.Register(ActivityInvalidateMfa, func(ctx context.Context, input string) (string, error) {
		userID, err := uuid.Parse(input)
		if err != nil {
			return "", fmt.Errorf("parse user id: %w", err)
		}
		if err := svc.InvalidateChallenge(ctx, userID); err != nil {
			return "", err
		}
		return "", nil
	})

	registry.Register(ActivityRecordLogin, func(ctx context.Context, input string) (string, error) {
		userID, err := uuid.Parse(input)
		if err != nil {
			return "", fmt.Errorf("parse user id: %w", err)
		}
		if err := svc.RecordLogin(ctx, userID); err != nil {
			return "", err
		}
		return "", nil
	})
}
