package validate

import (
	"github.com/tidwall/gjson"
)

const handleSize = 32

// AssertInputProofResult checks an input-proof result, either
// {"accepted":true,"handles":[hex32],"signatures":[hex],"extraData":hex} or
// {"accepted":false,"extraData":hex}.
func AssertInputProofResult(v gjson.Result, name, property string) error {
	if err := AssertObject(v, name, property); err != nil {
		return err
	}
	accepted := v.Get("accepted")
	if err := AssertBool(accepted, name, join(property, "accepted")); err != nil {
		return err
	}
	if err := AssertHex(v.Get("extraData"), name, join(property, "extraData"), 0); err != nil {
		return err
	}
	if !accepted.Bool() {
		return nil
	}
	if err := AssertHexArray(v.Get("handles"), name, join(property, "handles"), handleSize); err != nil {
		return err
	}
	return AssertHexArray(v.Get("signatures"), name, join(property, "signatures"), 0)
}

// AssertPublicDecryptResult checks
// {"signatures":[hex],"decryptedValue":hex,"extraData":hex}.
func AssertPublicDecryptResult(v gjson.Result, name, property string) error {
	if err := AssertObject(v, name, property); err != nil {
		return err
	}
	if err := AssertHexArray(v.Get("signatures"), name, join(property, "signatures"), 0); err != nil {
		return err
	}
	if err := AssertHex(v.Get("decryptedValue"), name, join(property, "decryptedValue"), 0); err != nil {
		return err
	}
	return AssertHex(v.Get("extraData"), name, join(property, "extraData"), 0)
}

// AssertUserDecryptResult checks {"result":[{"payload":hex,"signature":hex}]}.
func AssertUserDecryptResult(v gjson.Result, name, property string) error {
	if err := AssertObject(v, name, property); err != nil {
		return err
	}
	return AssertArrayOf(v.Get("result"), name, join(property, "result"), func(item gjson.Result, p string) error {
		if err := AssertObject(item, name, p); err != nil {
			return err
		}
		if err := AssertHex(item.Get("payload"), name, p+".payload", 0); err != nil {
			return err
		}
		return AssertHex(item.Get("signature"), name, p+".signature", 0)
	})
}

// AssertKeyURLResult checks
// {"fhePublicKey":{"dataId":string,"urls":[string]},"crs":{"<bits>":{"dataId":string,"urls":[string]}}}.
func AssertKeyURLResult(v gjson.Result, name, property string) error {
	if err := AssertObject(v, name, property); err != nil {
		return err
	}
	if err := assertKeyRef(v.Get("fhePublicKey"), name, join(property, "fhePublicKey")); err != nil {
		return err
	}
	crs := v.Get("crs")
	crsProp := join(property, "crs")
	if err := AssertObject(crs, name, crsProp); err != nil {
		return err
	}
	var err error
	crs.ForEach(func(key, ref gjson.Result) bool {
		err = assertKeyRef(ref, name, crsProp+"."+key.String())
		return err == nil
	})
	return err
}

func assertKeyRef(v gjson.Result, name, property string) error {
	if err := AssertObject(v, name, property); err != nil {
		return err
	}
	if err := AssertNonEmptyString(v.Get("dataId"), name, property+".dataId"); err != nil {
		return err
	}
	return AssertNonEmptyArrayOf(v.Get("urls"), name, property+".urls", func(item gjson.Result, p string) error {
		return AssertNonEmptyString(item, name, p)
	})
}
