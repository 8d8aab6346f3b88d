package models

import "vaultline/pkg/domain"

type UnlockSetResponse struct {
	Unlocked UnlockSet `json:"unlocked"`
}

type UnlockStatusResponse struct {
	EntityID domain.EntityID `json:"entity_id"`
	Unlocked bool            `json:"unlocked"`
}
