//go:build !unix && !windows

package shortcut

func identityOf(string) (Identity, error) {
	return Identity{}, ErrIdentityUnsupported
}
