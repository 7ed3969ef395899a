package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"keeway/internal/salt"
	"keeway/models"
	"keeway/pkg/cache"
	"keeway/pkg/chain"
	"keeway/pkg/repository"
	"keeway/pkg/utils"
)

var (
	ErrUserExists          = errors.New("service: user already exists")
	ErrUserNotFound        = errors.New("service: user not found")
	ErrInvalidCredentials  = errors.New("service: invalid credentials")
	ErrUserBanned          = errors.New("service: user is banned")
	ErrVerificationPending = errors.New("service: email verification pending")
	ErrInvalidCode         = errors.New("service: invalid verification code")
	ErrInvalidToken        = errors.New("service: invalid token")
	ErrTotpNotConfigured   = errors.New("service: totp not configured")
	ErrTotpInvalid         = errors.New("service: totp token invalid")
	ErrInsufficientFunds   = errors.New("service: insufficient balance")
)

type sessionClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	AppID  string `json:"aid"`
}

// ExchangeService is the end-user account layer: auth, TOTP, per-user deposit
// wallets and treasury transfers, all scoped to one App.
type ExchangeService struct {
	repos   *repository.Repository
	chain   chain.Gateway
	mailer  mailSender
	pricing priceQuoter
	auth    AuthConfig
	codes   *cache.Cache
}

func NewExchangeService(repos *repository.Repository, gateway chain.Gateway, mailer mailSender, prices priceQuoter, auth AuthConfig) *ExchangeService {
	return &ExchangeService{
		repos:   repos,
		chain:   gateway,
		mailer:  mailer,
		pricing: prices,
		auth:    auth,
		codes:   cache.New(15 * time.Minute),
	}
}

// SignUp creates the user, allocates one shared derivation index, derives a
// deposit wallet per verified token, and sends the verification code.
func (s *ExchangeService) SignUp(app models.App, input models.SignUpInput) (models.ExchangeUser, error) {
	if _, err := s.repos.GetExchangeUserByLogin(app.ID, input.Email); err == nil {
		return models.ExchangeUser{}, ErrUserExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return models.ExchangeUser{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.ExchangeUser{}, errors.Wrap(err, "hash password")
	}

	index, err := s.repos.NextExchangeUserIndex()
	if err != nil {
		return models.ExchangeUser{}, err
	}

	user, err := s.repos.CreateExchangeUser(models.ExchangeUser{
		AppID:     app.ID,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Username:  input.Username,
		Email:     input.Email,
		Phone:     input.Phone,
		Password:  string(hash),
		Index:     index,
	})
	if err != nil {
		return models.ExchangeUser{}, err
	}

	if err := s.provisionWallets(context.Background(), app, user); err != nil {
		logrus.WithError(err).WithField("user", user.ID).Error("provision exchange wallets")
	}

	s.sendCode(app, user.Email, "verify")
	return user, nil
}

// provisionWallets derives one deposit wallet per verified token at the
// user's index. Tokens on underivable networks are skipped.
func (s *ExchangeService) provisionWallets(ctx context.Context, app models.App, user models.ExchangeUser) error {
	tokens, err := s.repos.ListVerifiedTokens()
	if err != nil {
		return err
	}

	walletSalt := salt.Compute(app.SecretKey, user.Index)
	for _, token := range tokens {
		if _, err := s.repos.GetWalletByIndex(app.ID, token.ID, user.Index); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		network, err := s.repos.GetNetwork(token.Network)
		if err != nil {
			logrus.WithError(err).WithField("token", token.Symbol).Warn("skip wallet provisioning")
			continue
		}
		address, err := s.chain.DeriveAddress(ctx, network, walletSalt)
		if errors.Is(err, chain.ErrUnsupportedBlockchain) {
			continue
		}
		if err != nil {
			return err
		}

		if _, err := s.repos.CreateWallet(models.Wallet{
			AppID:        app.ID,
			TokenID:      token.ID,
			Address:      address,
			Index:        user.Index,
			ContactEmail: &user.Email,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *ExchangeService) SignIn(app models.App, input models.SignInInput) (string, error) {
	user, err := s.repos.GetExchangeUserByLogin(app.ID, input.User)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return "", ErrInvalidCredentials
	}
	if !user.VerifiedEmail {
		s.sendCode(app, user.Email, "verify")
		return "", ErrVerificationPending
	}
	if !user.Active {
		return "", ErrUserBanned
	}

	return s.issueToken(app, user)
}

func (s *ExchangeService) issueToken(app models.App, user models.ExchangeUser) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.auth.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.auth.TokenTTL)),
			Subject:   user.ID,
		},
		UserID: user.ID,
		AppID:  app.ID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.auth.SigningKey))
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// ParseToken validates a bearer token and returns its user. Tokens issued
// before the user's login_valid_from are rejected; that is how sign-out and
// password resets invalidate old sessions.
func (s *ExchangeService) ParseToken(app models.App, tokenString string) (models.ExchangeUser, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.auth.SigningKey), nil
	})
	if err != nil || !token.Valid {
		return models.ExchangeUser{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || claims.AppID != app.ID {
		return models.ExchangeUser{}, ErrInvalidToken
	}

	user, err := s.repos.GetExchangeUserByID(app.ID, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.ExchangeUser{}, ErrInvalidToken
	}
	if err != nil {
		return models.ExchangeUser{}, err
	}

	if claims.IssuedAt == nil || claims.IssuedAt.Time.Add(time.Second).Before(user.LoginValidFrom) {
		return models.ExchangeUser{}, ErrInvalidToken
	}
	if !user.Active {
		return models.ExchangeUser{}, ErrUserBanned
	}
	return user, nil
}

func (s *ExchangeService) VerifyEmail(app models.App, input models.VerifyInput) error {
	user, err := s.repos.GetExchangeUserByLogin(app.ID, input.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	if input.Resend {
		s.sendCode(app, user.Email, "verify")
		return nil
	}

	if !s.checkCode(app, user.Email, "verify", input.Token) {
		return ErrInvalidCode
	}
	s.clearCode(app, user.Email, "verify")
	return s.repos.MarkEmailVerified(app.ID, user.ID)
}

// InitiateReset always reports success so callers cannot probe which emails
// have accounts.
func (s *ExchangeService) InitiateReset(app models.App, input models.InitiateResetInput) error {
	user, err := s.repos.GetExchangeUserByLogin(app.ID, input.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	s.sendCode(app, user.Email, "reset")
	return nil
}

func (s *ExchangeService) VerifyReset(app models.App, input models.VerifyInput) error {
	if !s.checkCode(app, input.Email, "reset", input.Token) {
		return ErrInvalidCode
	}
	return nil
}

func (s *ExchangeService) ResetPassword(app models.App, input models.ResetPasswordInput) error {
	if !s.checkCode(app, input.Email, "reset", input.Token) {
		return ErrInvalidCode
	}

	user, err := s.repos.GetExchangeUserByLogin(app.ID, input.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	if err := s.repos.UpdateExchangePassword(app.ID, user.ID, string(hash), input.LogOtherDevicesOut); err != nil {
		return err
	}
	s.clearCode(app, input.Email, "reset")
	return nil
}

func (s *ExchangeService) SignOut(app models.App, userID string) error {
	return s.repos.InvalidateSessions(app.ID, userID)
}

func (s *ExchangeService) UpdateProfile(app models.App, userID string, input models.UpdateProfileInput) (models.ExchangeUser, error) {
	user, err := s.repos.UpdateExchangeProfile(app.ID, userID, input)
	if errors.Is(err, repository.ErrNotFound) {
		return models.ExchangeUser{}, ErrUserNotFound
	}
	return user, err
}

func (s *ExchangeService) UpdatePassword(app models.App, userID string, input models.UpdatePasswordInput) error {
	user, err := s.repos.GetExchangeUserByID(app.ID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	return s.repos.UpdateExchangePassword(app.ID, userID, string(hash), input.LogOtherDevicesOut)
}

func (s *ExchangeService) SetupTotp(app models.App, userID string) (TotpSetup, error) {
	user, err := s.repos.GetExchangeUserByID(app.ID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return TotpSetup{}, ErrUserNotFound
	}
	if err != nil {
		return TotpSetup{}, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      app.DisplayName,
		AccountName: user.Email,
	})
	if err != nil {
		return TotpSetup{}, errors.Wrap(err, "generate totp")
	}
	if err := s.repos.SetTotpSecret(app.ID, userID, key.Secret()); err != nil {
		return TotpSetup{}, err
	}
	return TotpSetup{Secret: key.Secret(), URL: key.URL()}, nil
}

func (s *ExchangeService) ValidateTotp(app models.App, userID string, input models.ValidateTotpInput) (bool, error) {
	user, err := s.repos.GetExchangeUserByID(app.ID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, ErrUserNotFound
	}
	if err != nil {
		return false, err
	}
	if user.TotpSecret == "" {
		return false, ErrTotpNotConfigured
	}
	return totp.Validate(input.Token, user.TotpSecret), nil
}

// UserWallets returns the user's deposit wallets, provisioning any missing
// ones first so tokens verified after sign-up still get addresses.
func (s *ExchangeService) UserWallets(ctx context.Context, app models.App, userID string) ([]models.WalletView, error) {
	user, err := s.repos.GetExchangeUserByID(app.ID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.provisionWallets(ctx, app, user); err != nil {
		logrus.WithError(err).WithField("user", user.ID).Warn("provision exchange wallets")
	}

	wallets, err := s.repos.ListWallets(app.ID)
	if err != nil {
		return nil, err
	}

	views := make([]models.WalletView, 0)
	for _, w := range wallets {
		if w.Index == user.Index {
			views = append(views, w.View())
		}
	}
	s.quoteUsd(ctx, views)
	return views, nil
}

// quoteUsd attaches a usd value to each view. Quotes are best effort; a
// missing price never fails the listing.
func (s *ExchangeService) quoteUsd(ctx context.Context, views []models.WalletView) {
	if s.pricing == nil {
		return
	}
	for i := range views {
		price, err := s.pricing.Price(ctx, views[i].Token.CoinGeckoID, "usd")
		if err != nil {
			logrus.WithError(err).WithField("token", views[i].Token.Symbol).Warn("usd quote unavailable")
			continue
		}
		views[i].FiatCurrency = "usd"
		views[i].FiatValue = views[i].PlatformBalance.Mul(price)
	}
}

func (s *ExchangeService) UserTransactions(app models.App, userID string) ([]models.Transaction, error) {
	user, err := s.repos.GetExchangeUserByID(app.ID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	wallets, err := s.repos.ListWallets(app.ID)
	if err != nil {
		return nil, err
	}

	all := make([]models.Transaction, 0)
	for _, w := range wallets {
		if w.Index != user.Index {
			continue
		}
		txs, err := s.repos.ListTransactions(w.ID)
		if err != nil {
			return nil, err
		}
		all = append(all, txs...)
	}
	return all, nil
}

// UserSend transfers out of the treasury factory and debits the user's
// ledger. TOTP is mandatory once the user has configured it.
func (s *ExchangeService) UserSend(ctx context.Context, app models.App, userID string, input models.SendCryptoInput, totpToken string) (string, error) {
	user, err := s.repos.GetExchangeUserByID(app.ID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", err
	}

	if user.TotpSecret != "" {
		if !totp.Validate(totpToken, user.TotpSecret) {
			return "", ErrTotpInvalid
		}
	}

	token, err := s.repos.GetToken(input.Blockchain, input.Network, input.Token)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrTokenNotSupported
	}
	if err != nil {
		return "", err
	}
	network, err := s.repos.GetNetwork(token.Network)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrNetworkNotFound
	}
	if err != nil {
		return "", err
	}

	wallet, err := s.repos.GetWalletByIndex(app.ID, token.ID, user.Index)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrWalletNotFound
	}
	if err != nil {
		return "", err
	}

	amount := input.Amount.Shift(token.Decimals)
	if !amount.IsPositive() {
		return "", errors.New("service: amount must be positive")
	}
	if wallet.PlatformBalance.LessThan(amount) {
		return "", ErrInsufficientFunds
	}

	var hash string
	if token.IsNativeToken {
		hash, err = s.chain.TransferNative(ctx, network, input.To, amount)
	} else if token.ContractAddress != nil {
		hash, err = s.chain.TransferERC20(ctx, network, *token.ContractAddress, input.To, amount)
	} else {
		return "", errors.Errorf("service: token %s has no contract address", token.Symbol)
	}
	if err != nil {
		return "", err
	}

	if _, err := s.repos.CreateTransaction(models.Transaction{
		WalletID:        wallet.ID,
		Amount:          amount,
		Type:            models.TransactionDebit,
		TxHash:          hash,
		Confirmed:       true,
		ShouldAggregate: true,
	}); err != nil && !errors.Is(err, repository.ErrDuplicateTransaction) {
		return hash, err
	}

	received, spent, err := s.repos.Aggregates(wallet.ID)
	if err != nil {
		return hash, err
	}
	if err := s.repos.UpdateBalances(wallet.ID, received.Sub(spent), wallet.OnChainBalance, received, spent); err != nil {
		return hash, err
	}
	return hash, nil
}

func (s *ExchangeService) codeKey(app models.App, email, purpose string) string {
	return fmt.Sprintf("%s:%s:%s", purpose, app.ID, email)
}

func (s *ExchangeService) sendCode(app models.App, email, purpose string) {
	code := utils.RandomCode(6)
	s.codes.Set(s.codeKey(app, email, purpose), code)

	if s.mailer == nil {
		return
	}
	go func() {
		subject, body := utils.VerificationEmail(app.DisplayName, code)
		if err := s.mailer.Send(email, subject, body); err != nil {
			logrus.WithError(err).WithField("email", email).Warn("verification email")
		}
	}()
}

func (s *ExchangeService) checkCode(app models.App, email, purpose, token string) bool {
	code, ok := s.codes.Get(s.codeKey(app, email, purpose))
	return ok && token != "" && code == token
}

func (s *ExchangeService) clearCode(app models.App, email, purpose string) {
	s.codes.Delete(s.codeKey(app, email, purpose))
}
