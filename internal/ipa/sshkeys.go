package ipa

import (
	"fmt"
	"regexp"
)

// fingerprintPattern splits "<fingerprint> [<comment> ](<type>)".
var fingerprintPattern = regexp.MustCompile(`(.*?) ((.*) )?\((.*)\)`)

// rebuildSSHKeys reassembles authorized_keys lines from the sshpubkeyfp values and
// the ipasshpubkey values at the same positions. Binary values carry only the key
// blob; text values already hold a complete key line.
func rebuildSSHKeys(fingerprints []string, blobs []Value) ([]string, error) {
	if len(fingerprints) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(fingerprints))
	for n, fp := range fingerprints {
		if n >= len(blobs) || blobs[n].String() == "" {
			return nil, fmt.Errorf("missing ssh key data for fingerprint %d", n)
		}
		if !blobs[n].Binary {
			keys = append(keys, blobs[n].Text)
			continue
		}

		match := fingerprintPattern.FindStringSubmatch(fp)
		if match == nil {
			return nil, fmt.Errorf("unrecognized ssh key fingerprint %q", fp)
		}

		keyType, comment := match[4], match[3]
		if comment != "" {
			keys = append(keys, fmt.Sprintf("%s %s %s", keyType, blobs[n].Base64, comment))
		} else {
			keys = append(keys, fmt.Sprintf("%s %s", keyType, blobs[n].Base64))
		}
	}

	return keys, nil
}
