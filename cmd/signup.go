package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bookkar-cli/auth"
	"bookkar-cli/errs"
	"bookkar-cli/model"
	"bookkar-cli/service"
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a BookKar account",
	Long:  `Create a customer or owner account without opening the full screen interface.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(configPath)
		if err != nil {
			return err
		}
		defer app.close()

		req, err := promptSignUp()
		if err != nil {
			return err
		}
		user, profileErr, err := registerAccount(context.Background(), app.auth, app.client, req)
		if err != nil {
			return fmt.Errorf("%s", errs.UserMessage(err))
		}
		out := cmd.OutOrStdout()
		if profileErr != nil {
			app.logger.Warn("save profile", zap.String("uid", user.Uid), zap.Error(profileErr))
			fmt.Fprintf(out, "Account created for %s, but saving your profile failed: %s\n", user.Email, errs.UserMessage(profileErr))
		} else {
			fmt.Fprintf(out, "Account created for %s as %s.\n", user.Email, req.UserType)
		}
		fmt.Fprintf(out, "Run %s to log in.\n", appName)
		return nil
	},
}

// registerAccount creates the credentials, then the profile that carries the
// user type. A profile failure does not undo the account: it is returned as
// profileErr next to the created user.
func registerAccount(ctx context.Context, authn auth.Authenticator, client *service.Client, req auth.SignUpRequest) (user model.User, profileErr error, err error) {
	user, err = authn.SignUp(ctx, req)
	if err != nil {
		return model.User{}, nil, err
	}
	_, profileErr = client.CreateUser(ctx, service.NewUser{
		UserId:   user.Uid,
		FullName: req.FullName,
		Email:    user.Email,
		UserType: req.UserType,
	})
	return user, profileErr, nil
}

func promptSignUp() (auth.SignUpRequest, error) {
	required := func(input string) error {
		if strings.TrimSpace(input) == "" {
			return errs.Validation("required")
		}
		return nil
	}

	fullName, err := (&promptui.Prompt{Label: "Full name"}).Run()
	if err != nil {
		return auth.SignUpRequest{}, err
	}
	email, err := (&promptui.Prompt{Label: "Email", Validate: required}).Run()
	if err != nil {
		return auth.SignUpRequest{}, err
	}
	password, err := (&promptui.Prompt{
		Label: "Password",
		Mask:  '*',
		Validate: func(input string) error {
			if len(input) < 6 {
				return errs.Validation("at least 6 characters")
			}
			return nil
		},
	}).Run()
	if err != nil {
		return auth.SignUpRequest{}, err
	}

	selectRole := promptui.Select{
		Label: "I am a",
		Items: []string{string(model.UserTypeCustomer), string(model.UserTypeOwner)},
		Size:  2,
	}
	_, role, err := selectRole.Run()
	if err != nil {
		return auth.SignUpRequest{}, err
	}

	req := auth.SignUpRequest{
		FullName: strings.TrimSpace(fullName),
		Email:    strings.TrimSpace(email),
		Password: password,
		UserType: model.UserType(role),
	}
	return req, req.Validate()
}
