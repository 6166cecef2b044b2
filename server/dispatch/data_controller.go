package dispatch

import (
	"rincewind/server/dao"
	"rincewind/server/errors"
	"rincewind/server/noti"
	"rincewind/server/render"
)

//NewDataController exposes generic record access over every entity type
//known to the registry: get by key, list by RQL filter, remove by key.
func NewDataController(registry *dao.Registry) *Controller {
	return &Controller{
		Name: "data",
		Actions: map[string]Action{
			"get": {
				Params: []ParamFactory{StringParam, StringParam},
				Handle: func(ctx *Context, params []interface{}) (string, render.Model, error) {
					entityDao, err := registry.Get(params[0].(string))
					if err != nil {
						return "", nil, err
					}
					record, err := entityDao.Get(params[1].(string))
					if err != nil {
						return "", nil, err
					}
					if record == nil {
						return "", nil, errors.NewNotFoundError(dao.ErrRecordNotFound, "Record not found", nil)
					}
					return "record", render.Model{"record": record.Data}, nil
				},
			},
			"list": {
				Params: []ParamFactory{StringParam, StringParam},
				Handle: func(ctx *Context, params []interface{}) (string, render.Model, error) {
					entityDao, err := registry.Get(params[0].(string))
					if err != nil {
						return "", nil, err
					}
					iterator, err := entityDao.GetBulk(params[1].(string))
					if err != nil {
						return "", nil, err
					}
					records, err := iterator.AsArrays().All()
					if err != nil {
						return "", nil, err
					}
					return "records", render.Model{"records": records, "total": iterator.Count()}, nil
				},
			},
			"remove": {
				Params: []ParamFactory{StringParam, StringParam},
				Handle: func(ctx *Context, params []interface{}) (string, render.Model, error) {
					entityDao, err := registry.Get(params[0].(string))
					if err != nil {
						return "", nil, err
					}
					record, err := entityDao.Get(params[1].(string))
					if err != nil {
						return "", nil, err
					}
					if record == nil {
						return "", nil, errors.NewNotFoundError(dao.ErrRecordNotFound, "Record not found", nil)
					}
					if err := entityDao.Delete(record); err != nil {
						return "", nil, err
					}
					ctx.Notifications.Push(noti.NewEvent(entityDao.Description().Resource, "remove", record.Data))
					return "record", render.Model{"removed": record.Data}, nil
				},
			},
		},
	}
}
