// Package trust decides whether a downloaded phar may be installed.
//
// # Security Model
//
// Every phar is accompanied by a detached OpenPGP signature. Verification
// never silently trusts a new key:
//   - A key already in the keyring, and known to have signed this phar
//     before, is trusted without prompting.
//   - An unknown key is downloaded from the keyserver, shown to the user and
//     only imported after explicit confirmation.
//   - A changed key (the phar was signed by a different key before, or the
//     keyserver returns a different key for a stored ID) produces a warning
//     before the same confirmation.
//
// Declining is terminal: the operation fails with ErrVerificationFailed and
// nothing is imported. There is no retry and no resumable state.
//
// Phars published with a Sigstore bundle can additionally be checked with
// SigstoreVerifier.
//
// # Architecture
//
//   - KeyService: the lookup / confirm / import state machine
//   - Keyring: directory-backed public key store and importer
//   - KeyserverDownloader: fetches candidate keys from a VKS keyserver
//   - SignatureVerifier: detached signature check driving KeyService
//   - SigstoreVerifier: Sigstore bundle check
package trust
