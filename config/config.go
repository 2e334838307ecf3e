package config

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/filecoin-project/go-address"
	logging "github.com/ipfs/go-log/v2"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/xerrors"

	"github.com/rqzrqh/paychan/common"
)

var log = logging.Logger("config")

const (
	DefaultBaseDir = "~/.paychan"
	ConfigFile     = "config.json"
	DatabaseFile   = "storage.db"

	EnvPrefix = "PAYCHAN"
)

var ErrNoAccount = xerrors.New("no account configured")

type Account struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}

// File is the content of config.json.
type File struct {
	Sender   Account `json:"sender"`
	Receiver Account `json:"receiver"`
	Node     string  `json:"node,omitempty"`
	DB       string  `json:"db,omitempty"`
	Redis    string  `json:"redis,omitempty"`
}

func (f *File) account(role common.Role) Account {
	if role == common.RoleSender {
		return f.Sender
	}
	return f.Receiver
}

func (f *File) SetAccount(role common.Role, acc Account) {
	if role == common.RoleSender {
		f.Sender = acc
		return
	}
	f.Receiver = acc
}

// Settings is what a command runs with for one role.
type Settings struct {
	Role         common.Role
	Account      address.Address
	Password     string
	ConfigFile   string
	DatabaseFile string
}

func (s *Settings) MaskedPassword() string {
	return strings.Repeat("*", len(s.Password))
}

// BaseDir expands dir, "~" included, to an absolute path.
func BaseDir(dir string) (string, error) {
	if dir == "" {
		dir = DefaultBaseDir
	}
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return "", xerrors.Errorf("expand %s: %w", dir, err)
	}
	return filepath.Abs(expanded)
}

func ConfigFilePath(baseDir string) string {
	return filepath.Join(baseDir, ConfigFile)
}

func DatabaseFilePath(baseDir string) string {
	return filepath.Join(baseDir, DatabaseFile)
}

// Load reads config.json under baseDir. A missing file is an empty
// configuration.
func Load(baseDir string) (*File, error) {
	path := ConfigFilePath(baseDir)

	raw, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		log.Debugw("no configuration file", "path", path)
		return &File{}, nil
	}
	if err != nil {
		return nil, xerrors.Errorf("read %s: %w", path, err)
	}

	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, xerrors.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

func Save(baseDir string, f *File) error {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return xerrors.Errorf("create %s: %w", baseDir, err)
	}

	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}

	path := ConfigFilePath(baseDir)
	if err := ioutil.WriteFile(path, raw, 0600); err != nil {
		return xerrors.Errorf("write %s: %w", path, err)
	}
	log.Infow("configuration saved", "path", path)
	return nil
}

// EnvKey names the variable overriding field ("ACCOUNT" or "PASSWORD") of
// role.
func EnvKey(role common.Role, field string) string {
	return EnvPrefix + "_" + strings.ToUpper(role.String()) + "_" + field
}

// Resolve picks the account of role, letting the environment override the
// file. getenv is usually os.Getenv.
func (f *File) Resolve(baseDir string, role common.Role, getenv func(string) string) (*Settings, error) {
	acc := f.account(role)
	if v := getenv(EnvKey(role, "ACCOUNT")); v != "" {
		acc.Account = v
	}
	if v := getenv(EnvKey(role, "PASSWORD")); v != "" {
		acc.Password = v
	}

	s := &Settings{
		Role:         role,
		Account:      address.Undef,
		Password:     acc.Password,
		ConfigFile:   ConfigFilePath(baseDir),
		DatabaseFile: DatabaseFilePath(baseDir),
	}
	if acc.Account == "" {
		return s, nil
	}

	addr, err := address.NewFromString(acc.Account)
	if err != nil {
		return nil, xerrors.Errorf("%s account %q: %w", role, acc.Account, err)
	}
	s.Account = addr
	return s, nil
}

// RequireAccount fails with ErrNoAccount when no account is configured.
func (s *Settings) RequireAccount() error {
	if s.Account == address.Undef {
		return xerrors.Errorf("%s: %w, set it with setup or %s", s.Role, ErrNoAccount, EnvKey(s.Role, "ACCOUNT"))
	}
	return nil
}
