package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	path "path/filepath"
	"strings"
	"text/template"

	"gopkg.in/alecthomas/kingpin.v2"
	"gopkg.in/yaml.v3"

	"github.com/Indellient/vault-client/pkg/config"
	"github.com/Indellient/vault-client/pkg/logger"
	"github.com/Indellient/vault-client/pkg/vault"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"

	LeftTemplateDelim  = `((`
	RightTemplateDelim = `))`
)

var (
	// Build time parameters
	BuildVersion   string
	BuildTimestamp string

	filename = path.Base(os.Args[0])
)

// application holds the kingpin app and everything it parses into. A fresh one is built for
// every invocation since kingpin keeps flag values between parses.
type application struct {
	app *kingpin.Application

	addr      *string
	token     *string
	namespace *string
	insecure  *bool
	envFile   *string
	logLevel  *string
	logFormat *string
	format    *string

	read         *kingpin.CmdClause
	readPath     *string
	readPrefix   *string
	readSelector *string

	write       *kingpin.CmdClause
	writePath   *string
	writePrefix *string
	writeData   *map[string]string

	list       *kingpin.CmdClause
	listPath   *string
	listPrefix *string

	del       *kingpin.CmdClause
	delPath   *string
	delPrefix *string

	tCreate         *kingpin.CmdClause
	tCreatePolicies *[]string
	tCreateTTL      *string
	tCreateOrphan   *bool
	tCreateName     *string

	tRenew          *kingpin.CmdClause
	tRenewId        *string
	tRenewIncrement *int

	tRenewSelf          *kingpin.CmdClause
	tRenewSelfIncrement *int

	tRevokeSelf *kingpin.CmdClause

	tRevokeOrphan   *kingpin.CmdClause
	tRevokeOrphanId *string

	tRevokePrefix       *kingpin.CmdClause
	tRevokePrefixPrefix *string

	tRevokeTree   *kingpin.CmdClause
	tRevokeTreeId *string

	tLookupSelf *kingpin.CmdClause

	loginApprole  *kingpin.CmdClause
	loginRoleId   *string
	loginSecretId *string

	status  *kingpin.CmdClause
	version *kingpin.CmdClause
}

func newApplication() *application {
	a := &application{}

	a.app = kingpin.New(filename, fmt.Sprintf(`Description:
	A command-line client for the vault HTTP API: read, write, list and delete secrets, and
	create, renew and revoke tokens.

	Vault environment variables VAULT_ADDR, VAULT_TOKEN, VAULT_NAMESPACE, VAULT_SKIP_VERIFY, VAULT_ROLE_ID
	and VAULT_SECRET_ID override command line options. They may also be set in the --env-file.

Usage:
	Write a secret:
		%v write secret/jenkins/dev/user/admin username=admin password=hunter2

	Read a secret, or a single value from it:
		%v read secret/jenkins/dev/user/admin
		%v read secret/jenkins/dev/user/admin --selector="((.username))"

	List and delete secrets:
		%v list secret/jenkins/dev/user
		%v delete secret/jenkins/dev/user/admin

	Create, renew and revoke tokens:
		%v token create --policy=default --ttl=1h
		%v token renew-self --increment=3600
		%v token revoke-self
`, filename, filename, filename, filename, filename, filename, filename, filename))

	a.addr = a.app.Flag("addr", "Vault address, like https://somewhere:8200 (VAULT_ADDR)").String()
	a.token = a.app.Flag("token", "The token used for requests (VAULT_TOKEN).").String()
	a.namespace = a.app.Flag("namespace", "The vault namespace (VAULT_NAMESPACE).").String()
	a.insecure = a.app.Flag("skip-verify", "Skip SSL certificate verification (VAULT_SKIP_VERIFY)").Bool()
	a.envFile = a.app.Flag("env-file", "A dotenv file with VAULT_* variables, loaded if present.").Default(".env").String()
	a.logLevel = a.app.Flag("log-level", "Logging level, one of: panic, fatal, error, warn, info, debug").Default("error").String()
	a.logFormat = a.app.Flag("log-format", "Logging format, one of: text, json").Default(logger.FormatText).Enum(logger.FormatText, logger.FormatJSON)
	a.format = a.app.Flag("format", "Output format, one of: json, yaml").Default(FormatJSON).Enum(FormatJSON, FormatYAML)

	// Secrets
	a.read = a.app.Command("read", "Read the secret at a path, printing its data to STDOUT.")
	a.readPath = a.read.Arg("path", "The vault path for the secret, like 'secret/jenkins/dev/user/admin'.").Required().String()
	a.readPrefix = a.read.Flag("path-prefix", "Prefix prepended to the path, like 'secret'.").String()
	a.readSelector = a.read.Flag("selector", "A go template selector applied to the data, like '((.username))'.").String()

	a.write = a.app.Command("write", "Write key=value pairs to a path, replacing any existing secret there.")
	a.writePath = a.write.Arg("path", "The vault path for the secret.").Required().String()
	a.writeData = a.write.Arg("data", "key=value pairs to store.").StringMap()
	a.writePrefix = a.write.Flag("path-prefix", "Prefix prepended to the path, like 'secret'.").String()

	a.list = a.app.Command("list", "List the names under a path.")
	a.listPath = a.list.Arg("path", "The vault path to list.").Required().String()
	a.listPrefix = a.list.Flag("path-prefix", "Prefix prepended to the path, like 'secret'.").String()

	a.del = a.app.Command("delete", "Delete the secret at a path. Deleting a missing secret succeeds.")
	a.delPath = a.del.Arg("path", "The vault path for the secret.").Required().String()
	a.delPrefix = a.del.Flag("path-prefix", "Prefix prepended to the path, like 'secret'.").String()

	// Tokens
	token := a.app.Command("token", "Perform operations on a token")

	a.tCreate = token.Command("create", "Create a new token as a child of the current one.")
	a.tCreatePolicies = a.tCreate.Flag("policy", "A policy to attach; may be repeated.").Strings()
	a.tCreateTTL = a.tCreate.Flag("ttl", "Initial TTL, like '1h'.").String()
	a.tCreateOrphan = a.tCreate.Flag("orphan", "Create the token without a parent.").Bool()
	a.tCreateName = a.tCreate.Flag("display-name", "Display name of the token.").String()

	a.tRenew = token.Command("renew", "Renew a token by id. If it cannot be renewed, command returns non-zero exit status.")
	a.tRenewId = a.tRenew.Arg("id", "The token to renew.").Required().String()
	a.tRenewIncrement = a.tRenew.Flag("increment", "Requested lease extension in seconds; 0 uses the server default.").Default("0").Int()

	a.tRenewSelf = token.Command("renew-self", "Renew the token used for the request.")
	a.tRenewSelfIncrement = a.tRenewSelf.Flag("increment", "Requested lease extension in seconds; 0 uses the server default.").Default("0").Int()

	a.tRevokeSelf = token.Command("revoke-self", "Revoke the token used for the request.")

	a.tRevokeOrphan = token.Command("revoke-orphan", "Revoke a token, leaving the tokens it created in place.")
	a.tRevokeOrphanId = a.tRevokeOrphan.Arg("id", "The token to revoke.").Required().String()

	a.tRevokePrefix = token.Command("revoke-prefix", "Revoke every token issued under a prefix.")
	a.tRevokePrefixPrefix = a.tRevokePrefix.Arg("prefix", "The prefix, like 'auth/github/'.").Required().String()

	a.tRevokeTree = token.Command("revoke-tree", "Revoke a token and every token created from it.")
	a.tRevokeTreeId = a.tRevokeTree.Arg("id", "The token to revoke.").Required().String()

	a.tLookupSelf = token.Command("lookup-self", "Show information about the token used for the request.")

	// Login
	login := a.app.Command("login", "Log in with an auth method, printing the new token.")
	a.loginApprole = login.Command("approle", "Log in with a role id and secret id.")
	a.loginRoleId = a.loginApprole.Flag("role-id", "The Vault Approle Role Id (VAULT_ROLE_ID)").String()
	a.loginSecretId = a.loginApprole.Flag("secret-id", "The Vault Approle Secret Id (VAULT_SECRET_ID)").String()

	a.status = a.app.Command("status", "Check that vault is initialized, unsealed and active.")
	a.version = a.app.Command("version", "Display version and build information")

	return a
}

// Run parses the cli arguments and performs the action, exiting non-zero on failure.
func Run(ctx context.Context, args []string) {
	if err := Execute(ctx, args, os.Stdout); err != nil {
		logger.Fatalf("%v", vault.RedactTokens(err.Error()))
	}
}

// Execute parses args (including the program name) and writes command output to out.
func Execute(ctx context.Context, args []string, out io.Writer) error {
	a := newApplication()

	command, err := a.app.Parse(args[1:])
	if err != nil {
		return err
	}

	if err := logger.SetLoggingLevel(*a.logLevel); err != nil {
		return err
	}

	if err := logger.SetFormat(*a.logFormat); err != nil {
		return err
	}

	if command == a.version.FullCommand() {
		_, err := fmt.Fprintf(out, "%v v%v built on %v\n", filename, BuildVersion, BuildTimestamp)
		return err
	}

	client, err := a.newClient()
	if err != nil {
		return err
	}

	switch command {
	case a.read.FullCommand():
		logger.Infof("Read secret from %v ...", *a.readPath)
		return a.runRead(ctx, client, out)

	case a.write.FullCommand():
		logger.Infof("Write secret to %v ...", *a.writePath)
		data := make(map[string]interface{}, len(*a.writeData))
		for key, value := range *a.writeData {
			data[key] = value
		}

		secret, err := client.Logical().Write(ctx, *a.writePath, data, vault.WithPathPrefix(*a.writePrefix))
		if err != nil {
			return err
		}

		if secret != nil {
			return a.print(out, secret)
		}

		_, err = fmt.Fprintf(out, "Success! Data written to: %v\n", vault.JoinPath(*a.writePrefix, *a.writePath))
		return err

	case a.list.FullCommand():
		logger.Infof("List secrets under %v ...", *a.listPath)
		keys, err := client.Logical().List(ctx, *a.listPath, vault.WithPathPrefix(*a.listPrefix))
		if err != nil {
			return err
		}

		return a.print(out, keys)

	case a.del.FullCommand():
		logger.Infof("Delete secret at %v ...", *a.delPath)
		if _, err := client.Logical().Delete(ctx, *a.delPath, vault.WithPathPrefix(*a.delPrefix)); err != nil {
			return err
		}

		_, err = fmt.Fprintf(out, "Success! Data deleted (if it existed) at: %v\n", vault.JoinPath(*a.delPrefix, *a.delPath))
		return err

	case a.tCreate.FullCommand():
		logger.Infof("Create token ...")
		secret, err := client.AuthToken().Create(ctx, a.createOptions())
		if err != nil {
			return err
		}

		return a.printAuth(out, secret)

	case a.tRenew.FullCommand():
		logger.Infof("Renew token ...")
		secret, err := client.AuthToken().Renew(ctx, *a.tRenewId, *a.tRenewIncrement)
		if err != nil {
			return err
		}

		return a.printAuth(out, secret)

	case a.tRenewSelf.FullCommand():
		logger.Infof("Renew own token ...")
		secret, err := client.AuthToken().RenewSelf(ctx, *a.tRenewSelfIncrement)
		if err != nil {
			return err
		}

		return a.printAuth(out, secret)

	case a.tRevokeSelf.FullCommand():
		logger.Infof("Revoke own token ...")
		status, err := client.AuthToken().RevokeSelf(ctx)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(out, "Success! Revoked token (status %d)\n", status)
		return err

	case a.tRevokeOrphan.FullCommand():
		logger.Infof("Revoke token without its children ...")
		if _, err := client.AuthToken().RevokeOrphan(ctx, *a.tRevokeOrphanId); err != nil {
			return err
		}

		_, err = fmt.Fprintln(out, "Success! Revoked token (children orphaned)")
		return err

	case a.tRevokePrefix.FullCommand():
		logger.Infof("Revoke tokens under %v ...", *a.tRevokePrefixPrefix)
		if _, err := client.AuthToken().RevokePrefix(ctx, *a.tRevokePrefixPrefix); err != nil {
			return err
		}

		_, err = fmt.Fprintf(out, "Success! Revoked tokens under prefix: %v\n", *a.tRevokePrefixPrefix)
		return err

	case a.tRevokeTree.FullCommand():
		logger.Infof("Revoke token and its children ...")
		if _, err := client.AuthToken().RevokeTree(ctx, *a.tRevokeTreeId); err != nil {
			return err
		}

		_, err = fmt.Fprintln(out, "Success! Revoked token and its children")
		return err

	case a.tLookupSelf.FullCommand():
		secret, err := client.AuthToken().LookupSelf(ctx)
		if err != nil {
			return err
		}

		if secret == nil {
			return fmt.Errorf("no token information returned")
		}

		return a.print(out, secret.Data)

	case a.loginApprole.FullCommand():
		logger.Infof("Log in with approle ...")
		roleId := config.GetEnvValue(config.EnvVaultRoleId, *a.loginRoleId)
		secretId := config.GetEnvValue(config.EnvVaultSecretId, *a.loginSecretId)

		secret, err := client.AppRole().Login(ctx, roleId, secretId)
		if err != nil {
			return err
		}

		return a.printAuth(out, secret)

	case a.status.FullCommand():
		health, err := client.Sys().Health(ctx)
		if err != nil {
			return err
		}

		if err := a.print(out, health); err != nil {
			return err
		}

		return health.NotReadyReason()
	}

	return fmt.Errorf("unhandled command '%v'", command)
}

// newClient builds the vault client from the env file, the environment and the global flags.
// Environment values win over flags.
func (a *application) newClient() (*vault.Client, error) {
	cfg, err := config.Load(*a.envFile)
	if err != nil {
		return nil, err
	}

	if *a.addr != "" {
		cfg.Address = config.GetEnvValue(config.EnvVaultAddr, *a.addr)
	}

	if *a.token != "" {
		cfg.Token = config.GetEnvValue(config.EnvVaultToken, *a.token)
	}

	if *a.namespace != "" {
		cfg.Namespace = config.GetEnvValue(config.EnvVaultNamespace, *a.namespace)
	}

	if *a.insecure {
		if cfg.Insecure, err = config.GetBoolEnvValue(config.EnvVaultInsecure, true); err != nil {
			return nil, err
		}
	}

	return vault.NewClient(cfg)
}

func (a *application) createOptions() map[string]interface{} {
	options := map[string]interface{}{}

	if len(*a.tCreatePolicies) > 0 {
		options["policies"] = *a.tCreatePolicies
	}

	if *a.tCreateTTL != "" {
		options["ttl"] = *a.tCreateTTL
	}

	if *a.tCreateOrphan {
		options["no_parent"] = true
	}

	if *a.tCreateName != "" {
		options["display_name"] = *a.tCreateName
	}

	return options
}

func (a *application) runRead(ctx context.Context, client *vault.Client, out io.Writer) error {
	secret, err := client.Logical().Read(ctx, *a.readPath, vault.WithPathPrefix(*a.readPrefix))
	if err != nil {
		return err
	}

	if secret == nil {
		return fmt.Errorf("no secret found at '%v'", vault.JoinPath(*a.readPrefix, *a.readPath))
	}

	if *a.readSelector == "" {
		return a.print(out, secret.Data)
	}

	rendered, err := RenderSelector(*a.readSelector, secret.Data)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, rendered)
	return err
}

func (a *application) printAuth(out io.Writer, secret *vault.Secret) error {
	if secret == nil || secret.Auth == nil {
		return fmt.Errorf("no auth information returned")
	}

	return a.print(out, secret.Auth)
}

func (a *application) print(out io.Writer, value interface{}) error {
	switch *a.format {
	case FormatYAML:
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		if err := encoder.Encode(value); err != nil {
			return err
		}

		return encoder.Close()
	default:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(value)
	}
}

// RenderSelector executes selector, a text/template using (( and )) as delimiters, against data.
func RenderSelector(selector string, data map[string]interface{}) (string, error) {
	tmpl, err := template.New("secrets").Delims(LeftTemplateDelim, RightTemplateDelim).Option("missingkey=error").Parse(selector)
	if err != nil {
		return "", fmt.Errorf("could not parse template selector '%v': %w", selector, err)
	}

	var parsed strings.Builder
	if err := tmpl.Execute(&parsed, data); err != nil {
		return "", fmt.Errorf("could not render template selector '%v': %w", selector, err)
	}

	return parsed.String(), nil
}
